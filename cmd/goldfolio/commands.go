package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"goldfolio/internal/format"
	"goldfolio/internal/holdings"
	"goldfolio/internal/importer"
)

// commands returns every ledger subcommand writing to out.
func commands(out io.Writer) []subcommands.Command {
	return []subcommands.Command{
		&holdingsCmd{ledgerFlags: ledgerFlags{out: out}},
		&summaryCmd{ledgerFlags: ledgerFlags{out: out}},
		&projectCmd{ledgerFlags: ledgerFlags{out: out}},
		&normalizeCmd{ledgerFlags: ledgerFlags{out: out}},
	}
}

// ledgerFlags are shared by every command that reads a ledger file.
type ledgerFlags struct {
	file     string
	currency string
	asJSON   bool
	out      io.Writer
}

func (l *ledgerFlags) register(f *flag.FlagSet) {
	f.StringVar(&l.file, "f", "trades.csv", "CSV ledger with columns date,symbol,type,quantity,price. Use - for stdin.")
	f.StringVar(&l.currency, "currency", format.DefaultCurrency, "ISO currency code for display amounts.")
	f.BoolVar(&l.asJSON, "json", false, "Emit JSON instead of a table.")
}

// records reads the ledger and coerces every row the way the API read path
// does. Malformed rows become no-ops rather than errors.
func (l *ledgerFlags) records() ([]holdings.Record, error) {
	var r io.Reader = os.Stdin
	if l.file != "-" {
		f, err := os.Open(l.file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	raw, err := importer.Read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.file, err)
	}
	records := make([]holdings.Record, len(raw))
	for i, row := range raw {
		records[i] = holdings.Coerce(row)
	}
	return records, nil
}

func (l *ledgerFlags) positions() ([]holdings.Position, error) {
	records, err := l.records()
	if err != nil {
		return nil, err
	}
	return holdings.Compute(records), nil
}

func (l *ledgerFlags) writeJSON(v any) error {
	enc := json.NewEncoder(l.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}

type holdingsCmd struct {
	ledgerFlags
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "list current positions by weighted-average cost" }
func (*holdingsCmd) Usage() string {
	return `goldfolio holdings [-f <file>] [-currency <code>] [-json]

  Replays the ledger and prints one line per symbol with units held, average
  cost, cost basis and realized profit or loss.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *holdingsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	positions, err := c.positions()
	if err != nil {
		return fail(err)
	}
	if c.asJSON {
		if err := c.writeJSON(positions); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SYMBOL\tQUANTITY\tAVG PRICE\tINVESTED\tREALIZED P&L\t")
	for _, p := range positions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			p.Symbol,
			format.Quantity(p.Quantity),
			format.Money(p.AvgPrice, c.currency),
			format.Money(p.TotalInvested, c.currency),
			format.Signed(p.RealizedPnL, c.currency))
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	ledgerFlags
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show dashboard totals and allocation" }
func (*summaryCmd) Usage() string {
	return `goldfolio summary [-f <file>] [-currency <code>] [-json]

  Prints total invested, total units, realized profit or loss, the top asset
  and the allocation of the invested amount.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *summaryCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	positions, err := c.positions()
	if err != nil {
		return fail(err)
	}
	sum := holdings.Summarize(positions)
	if c.asJSON {
		if err := c.writeJSON(sum); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total invested\t%s\n", format.Money(sum.TotalInvested, c.currency))
	fmt.Fprintf(w, "Total units\t%s\n", format.Quantity(sum.TotalUnits))
	fmt.Fprintf(w, "Realized P&L\t%s\n", format.Signed(sum.RealizedPnL, c.currency))
	fmt.Fprintf(w, "Open positions\t%d\n", sum.OpenPositions)
	fmt.Fprintf(w, "Top asset\t%s\n", sum.TopAsset)
	for _, a := range sum.Allocation {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", a.Symbol, format.Money(a.Value, c.currency), format.Percent(a.WeightPct))
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type projectCmd struct {
	ledgerFlags
	symbol   string
	quantity float64
	price    float64
}

func (*projectCmd) Name() string     { return "project" }
func (*projectCmd) Synopsis() string { return "project the profit of selling part of a position" }
func (*projectCmd) Usage() string {
	return `goldfolio project -symbol <symbol> -qty <units> -price <price> [-f <file>] [-json]

  Computes cost, revenue, profit and ROI of selling the given units at the
  given price against the position's average cost. Nothing is written.
`
}

func (c *projectCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.symbol, "symbol", "", "Symbol to sell.")
	f.Float64Var(&c.quantity, "qty", 0, "Units to sell.")
	f.Float64Var(&c.price, "price", 0, "Sale price per unit.")
}

func (c *projectCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	symbol := holdings.NormalizeSymbol(c.symbol)
	if symbol == "" {
		fmt.Fprintln(os.Stderr, "-symbol is required")
		return subcommands.ExitUsageError
	}

	positions, err := c.positions()
	if err != nil {
		return fail(err)
	}
	pos, ok := holdings.Find(positions, symbol)
	if !ok {
		return fail(fmt.Errorf("no position in %s", symbol))
	}

	pr, err := holdings.Project(pos, c.quantity, c.price)
	if errors.Is(err, holdings.ErrExceedsHolding) {
		return fail(fmt.Errorf("cannot sell %s units of %s: only %s held",
			format.Quantity(c.quantity), symbol, format.Quantity(pos.Quantity)))
	}
	if err != nil {
		return fail(err)
	}
	if c.asJSON {
		if err := c.writeJSON(pr); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Sell\t%s %s @ %s\n", format.Quantity(pr.Quantity), pr.Symbol, format.Money(pr.Price, c.currency))
	fmt.Fprintf(w, "Cost basis\t%s\n", format.Money(pr.Cost, c.currency))
	fmt.Fprintf(w, "Revenue\t%s\n", format.Money(pr.Revenue, c.currency))
	fmt.Fprintf(w, "Profit\t%s\n", format.Signed(pr.Profit, c.currency))
	fmt.Fprintf(w, "ROI\t%s\n", format.Percent(pr.ROIPct))
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type normalizeCmd struct {
	ledgerFlags
}

func (*normalizeCmd) Name() string     { return "normalize" }
func (*normalizeCmd) Synopsis() string { return "rewrite a ledger in canonical CSV form" }
func (*normalizeCmd) Usage() string {
	return `goldfolio normalize [-f <file>]

  Reads a ledger with any accepted column aliases and writes it to stdout with
  canonical headers, ISO dates, uppercase symbols and types.
`
}

func (c *normalizeCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *normalizeCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	records, err := c.records()
	if err != nil {
		return fail(err)
	}
	if err := importer.Write(c.out, records); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

package holdings

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func buy(d int, symbol string, q, p float64) Record {
	return Record{Date: day(d), Symbol: symbol, Type: Buy, Quantity: q, Price: p}
}

func sell(d int, symbol string, q, p float64) Record {
	return Record{Date: day(d), Symbol: symbol, Type: Sell, Quantity: q, Price: p}
}

func mustFind(t *testing.T, positions []Position, symbol string) Position {
	t.Helper()
	p, ok := Find(positions, symbol)
	require.True(t, ok, "expected a position for %s in %+v", symbol, positions)
	return p
}

func TestCompute_GoldbeesWalkthrough(t *testing.T) {
	ledger := []Record{buy(0, "GOLDBEES", 10, 50)}

	p := mustFind(t, Compute(ledger), "GOLDBEES")
	assert.Equal(t, Position{Symbol: "GOLDBEES", Quantity: 10, TotalInvested: 500, AvgPrice: 50}, p)

	ledger = append(ledger, buy(1, "GOLDBEES", 10, 70))
	p = mustFind(t, Compute(ledger), "GOLDBEES")
	assert.Equal(t, Position{Symbol: "GOLDBEES", Quantity: 20, TotalInvested: 1200, AvgPrice: 60}, p)

	ledger = append(ledger, sell(2, "GOLDBEES", 5, 80))
	p = mustFind(t, Compute(ledger), "GOLDBEES")
	assert.Equal(t, Position{Symbol: "GOLDBEES", Quantity: 15, TotalInvested: 900, AvgPrice: 60, RealizedPnL: 100}, p)

	ledger = append(ledger, sell(3, "GOLDBEES", 15, 90))
	p = mustFind(t, Compute(ledger), "GOLDBEES")
	assert.Equal(t, Position{Symbol: "GOLDBEES", RealizedPnL: 550}, p)

	// Oversell against an empty position changes nothing and the symbol
	// stays visible because it carries realized profit.
	ledger = append(ledger, sell(4, "GOLDBEES", 1, 1000))
	p = mustFind(t, Compute(ledger), "GOLDBEES")
	assert.Equal(t, Position{Symbol: "GOLDBEES", RealizedPnL: 550}, p)
}

func TestCompute_ExcludesCancelledRoundTrip(t *testing.T) {
	positions := Compute([]Record{
		buy(0, "A", 1, 1),
		sell(1, "A", 1, 1),
		buy(0, "B", 2, 10),
	})

	_, ok := Find(positions, "A")
	assert.False(t, ok)
	require.Len(t, positions, 1)
	assert.Equal(t, "B", positions[0].Symbol)
}

func TestCompute_OversellIsNoOp(t *testing.T) {
	before := mustFind(t, Compute([]Record{
		buy(0, "NIFTYBEES", 4, 200),
		sell(1, "NIFTYBEES", 1, 250),
	}), "NIFTYBEES")

	after := mustFind(t, Compute([]Record{
		buy(0, "NIFTYBEES", 4, 200),
		sell(1, "NIFTYBEES", 1, 250),
		sell(2, "NIFTYBEES", 3.5, 300),
	}), "NIFTYBEES")

	assert.Equal(t, before, after)
}

func TestCompute_SellBeforeBuyIsIgnored(t *testing.T) {
	positions := Compute([]Record{
		buy(5, "X", 2, 10),
		sell(1, "X", 2, 50),
	})

	p := mustFind(t, positions, "X")
	assert.Equal(t, Position{Symbol: "X", Quantity: 2, TotalInvested: 20, AvgPrice: 10}, p)
}

func TestCompute_WeightedAverageOnBuys(t *testing.T) {
	ledger := []Record{
		buy(0, "SILVERBEES", 3, 71.25),
		buy(1, "SILVERBEES", 7, 68.4),
		buy(2, "SILVERBEES", 0.5, 90),
	}
	p := mustFind(t, Compute(ledger), "SILVERBEES")

	var want float64
	for _, r := range ledger {
		want += r.Quantity * r.Price
	}
	assert.Equal(t, want, p.TotalInvested)
	assert.Equal(t, 10.5, p.Quantity)
	assert.Equal(t, p.TotalInvested/p.Quantity, p.AvgPrice)
	assert.Zero(t, p.RealizedPnL)
}

func TestCompute_ZeroResetKeepsRealizedPnL(t *testing.T) {
	p := mustFind(t, Compute([]Record{
		buy(0, "ACME", 1, 3),
		buy(1, "ACME", 2, 7),
		sell(2, "ACME", 3, 2),
	}), "ACME")

	assert.Zero(t, p.Quantity)
	assert.Zero(t, p.AvgPrice)
	assert.Zero(t, p.TotalInvested)
	assert.InDelta(t, 6.0-17.0, p.RealizedPnL, 1e-9)
}

func TestCompute_NormalizesSymbols(t *testing.T) {
	positions := Compute([]Record{
		buy(0, " goldbees ", 1, 50),
		buy(1, "GoldBees", 1, 70),
		buy(2, "   ", 1, 70),
	})

	require.Len(t, positions, 1)
	assert.Equal(t, Position{Symbol: "GOLDBEES", Quantity: 2, TotalInvested: 120, AvgPrice: 60}, positions[0])
}

func TestCompute_IgnoresUnusableRecords(t *testing.T) {
	positions := Compute([]Record{
		buy(0, "OK", 2, 10),
		{Date: day(1), Symbol: "OK", Type: "HOLD", Quantity: 5, Price: 1},
		{Date: day(2), Symbol: "OK", Type: Buy, Quantity: 0, Price: 1},
		{Date: day(3), Symbol: "OK", Type: Buy, Quantity: -4, Price: 1},
		{Date: day(4), Symbol: "OK", Type: Sell, Quantity: -1, Price: 1},
		{Date: day(5), Symbol: "OK", Type: Buy, Quantity: 1, Price: -3},
		{Date: day(6), Symbol: "ONLYJUNK", Type: "DIVIDEND", Quantity: 1, Price: 1},
	})

	require.Len(t, positions, 1)
	assert.Equal(t, Position{Symbol: "OK", Quantity: 2, TotalInvested: 20, AvgPrice: 10}, positions[0])
}

func TestCompute_OrderIndependentAcrossDates(t *testing.T) {
	ledger := []Record{
		buy(0, "A", 10, 50),
		buy(1, "A", 10, 70),
		sell(2, "A", 5, 80),
		buy(3, "B", 1, 1000),
		sell(4, "A", 3, 40),
		sell(5, "B", 1, 900),
		buy(6, "A", 2, 65),
	}
	want := Compute(ledger)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]Record, len(ledger))
		copy(shuffled, ledger)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, Compute(shuffled))
	}
}

func TestCompute_SameDateTieBreak(t *testing.T) {
	// Both records share a date: the SELL only succeeds if the BUY is
	// replayed first, which depends on the secondary keys.
	b := Record{ID: "b", Seq: 2, Date: day(0), Symbol: "T", Type: Buy, Quantity: 1, Price: 10}
	s := Record{ID: "a", Seq: 1, Date: day(0), Symbol: "T", Type: Sell, Quantity: 1, Price: 15}

	t.Run("seq_first", func(t *testing.T) {
		p := mustFind(t, Compute([]Record{b, s}), "T")
		assert.Equal(t, Position{Symbol: "T", Quantity: 1, TotalInvested: 10, AvgPrice: 10}, p)
	})

	t.Run("id_when_seq_equal", func(t *testing.T) {
		b2, s2 := b, s
		b2.Seq, s2.Seq = 0, 0
		b2.ID, s2.ID = "0001", "0002"
		for _, in := range [][]Record{{b2, s2}, {s2, b2}} {
			p := mustFind(t, Compute(in), "T")
			assert.Equal(t, Position{Symbol: "T", RealizedPnL: 5}, p)
		}
	})

	t.Run("input_order_when_keys_equal", func(t *testing.T) {
		b3, s3 := b, s
		b3.Seq, s3.Seq, b3.ID, s3.ID = 0, 0, "", ""
		p := mustFind(t, Compute([]Record{b3, s3}), "T")
		assert.Equal(t, Position{Symbol: "T", RealizedPnL: 5}, p)

		_, ok := Find(Compute([]Record{s3, b3}), "T")
		assert.True(t, ok)
	})
}

func TestCompute_NeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	symbols := []string{"A", "B", "C"}
	for run := 0; run < 50; run++ {
		var ledger []Record
		for i := 0; i < 40; i++ {
			r := Record{
				Seq:      int64(i),
				Date:     day(rng.Intn(10)),
				Symbol:   symbols[rng.Intn(len(symbols))],
				Type:     Buy,
				Quantity: float64(rng.Intn(5)),
				Price:    float64(rng.Intn(100)),
			}
			if rng.Intn(2) == 0 {
				r.Type = Sell
			}
			ledger = append(ledger, r)
		}
		for _, p := range Compute(ledger) {
			assert.GreaterOrEqual(t, p.Quantity, 0.0)
			assert.GreaterOrEqual(t, p.TotalInvested, -1e-9)
			assert.False(t, p.Quantity == 0 && p.RealizedPnL == 0, "empty position %+v leaked", p)
		}
	}
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	ledger := []Record{buy(2, "b", 1, 1), buy(1, "a", 1, 1)}
	Compute(ledger)
	assert.Equal(t, "b", ledger[0].Symbol)
	assert.Equal(t, day(1), ledger[1].Date)
}

func TestCompute_Empty(t *testing.T) {
	assert.Empty(t, Compute(nil))
	assert.NotNil(t, Compute(nil))
}

package services

import (
	"math"
	"testing"
	"time"

	"goldfolio/internal/holdings"
	"goldfolio/internal/models"
	"goldfolio/internal/pagination"
	"goldfolio/internal/testutil"
)

func expectNotified(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	default:
		t.Error("expected a change notification")
	}
}

func expectQuiet(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Error("unexpected change notification")
	default:
	}
}

func TestAddTrade(t *testing.T) {
	t.Run("normalizes_and_publishes", func(t *testing.T) {
		db, svc, hub := setupTradeService(t)
		user := testutil.CreateTestUser(t, db)
		ch, cancel := hub.Subscribe(user.ID)
		defer cancel()

		date := testutil.Day(5)
		trade, err := svc.AddTrade(ctx, user.ID, TradeInput{
			Date: &date, Symbol: "  goldbees ", Type: "buy", Quantity: 10, Price: 50,
		})
		testutil.AssertNoError(t, err)

		if trade.ID == "" {
			t.Fatal("expected trade ID to be assigned")
		}
		if trade.Symbol != "GOLDBEES" {
			t.Errorf("expected symbol GOLDBEES, got %q", trade.Symbol)
		}
		if trade.Type != holdings.Buy {
			t.Errorf("expected BUY, got %q", trade.Type)
		}
		if !trade.Date.Equal(date) {
			t.Errorf("expected date %v, got %v", date, trade.Date)
		}
		expectNotified(t, ch)

		var stored models.Trade
		if err := db.First(&stored, "id = ?", trade.ID).Error; err != nil {
			t.Fatalf("trade not persisted: %v", err)
		}
		if stored.UserID != user.ID || stored.Quantity != 10 || stored.Price != 50 {
			t.Errorf("unexpected stored trade: %+v", stored)
		}
	})

	t.Run("defaults_date_to_now", func(t *testing.T) {
		db, svc, _ := setupTradeService(t)
		user := testutil.CreateTestUser(t, db)
		now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
		svc.(*tradeService).now = func() time.Time { return now }

		trade, err := svc.AddTrade(ctx, user.ID, TradeInput{Symbol: "ABC", Type: "SELL", Quantity: 1, Price: 0})
		testutil.AssertNoError(t, err)
		if !trade.Date.Equal(now) {
			t.Errorf("expected date %v, got %v", now, trade.Date)
		}
	})

	t.Run("rejects_invalid_input", func(t *testing.T) {
		db, svc, hub := setupTradeService(t)
		user := testutil.CreateTestUser(t, db)
		ch, cancel := hub.Subscribe(user.ID)
		defer cancel()

		tests := []struct {
			name string
			in   TradeInput
		}{
			{"empty_symbol", TradeInput{Symbol: "   ", Type: "BUY", Quantity: 1, Price: 1}},
			{"symbol_with_space", TradeInput{Symbol: "GOLD BEES", Type: "BUY", Quantity: 1, Price: 1}},
			{"unknown_type", TradeInput{Symbol: "ABC", Type: "DIVIDEND", Quantity: 1, Price: 1}},
			{"zero_quantity", TradeInput{Symbol: "ABC", Type: "BUY", Quantity: 0, Price: 1}},
			{"negative_quantity", TradeInput{Symbol: "ABC", Type: "BUY", Quantity: -1, Price: 1}},
			{"nan_quantity", TradeInput{Symbol: "ABC", Type: "BUY", Quantity: math.NaN(), Price: 1}},
			{"negative_price", TradeInput{Symbol: "ABC", Type: "BUY", Quantity: 1, Price: -0.01}},
			{"infinite_price", TradeInput{Symbol: "ABC", Type: "BUY", Quantity: 1, Price: math.Inf(1)}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.AddTrade(ctx, user.ID, tt.in)
				testutil.AssertAppError(t, err, "INVALID_INPUT")
			})
		}

		var count int64
		db.Model(&models.Trade{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no trades stored, got %d", count)
		}
		expectQuiet(t, ch)
	})

	t.Run("requires_identity", func(t *testing.T) {
		_, svc, _ := setupTradeService(t)
		_, err := svc.AddTrade(ctx, "", TradeInput{Symbol: "ABC", Type: "BUY", Quantity: 1, Price: 1})
		testutil.AssertAppError(t, err, "UNAUTHORIZED")
	})
}

func TestImportTrades(t *testing.T) {
	t.Run("imports_valid_rows_and_counts_skipped", func(t *testing.T) {
		db, svc, hub := setupTradeService(t)
		user := testutil.CreateTestUser(t, db)
		ch, cancel := hub.Subscribe(user.ID)
		defer cancel()

		rows := []holdings.RawRecord{
			{Seq: 1, Date: "2024-01-01", Symbol: "goldbees", Type: "buy", Quantity: "10", Price: "50"},
			{Seq: 2, Symbol: "NIFTYBEES", Type: "BUY", Quantity: "5", Price: "200"},
			{Seq: 3, Date: "yesterday", Symbol: "ABC", Type: "BUY", Quantity: "1", Price: "1"},
			{Seq: 4, Date: "2024-01-02", Symbol: "ABC", Type: "HOLD", Quantity: "1", Price: "1"},
			{Seq: 5, Date: "2024-01-02", Symbol: "ABC", Type: "BUY", Quantity: "abc", Price: "1"},
			{Seq: 6, Date: "2024-01-02", Symbol: "", Type: "BUY", Quantity: "1", Price: "1"},
		}

		result, err := svc.ImportTrades(ctx, user.ID, rows)
		testutil.AssertNoError(t, err)

		if result.Imported != 2 || result.Skipped != 4 {
			t.Errorf("expected 2 imported / 4 skipped, got %d / %d", result.Imported, result.Skipped)
		}
		if len(result.Errors) != 4 || result.Errors[0].Row != 3 {
			t.Errorf("unexpected row errors: %+v", result.Errors)
		}
		expectNotified(t, ch)
		expectQuiet(t, ch)

		trades, err := svc.AllTrades(ctx, user.ID)
		testutil.AssertNoError(t, err)
		if len(trades) != 2 {
			t.Fatalf("expected 2 stored trades, got %d", len(trades))
		}
	})

	t.Run("same_date_rows_keep_file_order", func(t *testing.T) {
		db, svc, _ := setupTradeService(t)
		user := testutil.CreateTestUser(t, db)

		rows := []holdings.RawRecord{
			{Seq: 1, Date: "2024-03-01", Symbol: "ABC", Type: "BUY", Quantity: 10, Price: 100},
			{Seq: 2, Date: "2024-03-01", Symbol: "ABC", Type: "SELL", Quantity: 10, Price: 120},
		}
		_, err := svc.ImportTrades(ctx, user.ID, rows)
		testutil.AssertNoError(t, err)

		trades, err := svc.AllTrades(ctx, user.ID)
		testutil.AssertNoError(t, err)
		positions := holdings.Compute(models.Records(trades))
		if len(positions) != 1 {
			t.Fatalf("expected 1 position, got %d", len(positions))
		}
		if positions[0].Quantity != 0 || positions[0].RealizedPnL != 200 {
			t.Errorf("expected the sell to follow the buy, got %+v", positions[0])
		}
	})

	t.Run("nothing_valid_publishes_nothing", func(t *testing.T) {
		db, svc, hub := setupTradeService(t)
		user := testutil.CreateTestUser(t, db)
		ch, cancel := hub.Subscribe(user.ID)
		defer cancel()

		result, err := svc.ImportTrades(ctx, user.ID, []holdings.RawRecord{{Seq: 1, Symbol: "ABC", Type: "BUY"}})
		testutil.AssertNoError(t, err)
		if result.Imported != 0 || result.Skipped != 1 {
			t.Errorf("unexpected result: %+v", result)
		}
		expectQuiet(t, ch)
	})
}

func TestListTrades(t *testing.T) {
	db, svc, _ := setupTradeService(t)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)

	first := testutil.CreateTestTrade(t, db, user.ID, testutil.Day(1), "GOLDBEES", holdings.Buy, 10, 50)
	second := testutil.CreateTestTrade(t, db, user.ID, testutil.Day(3), "GOLDBEES", holdings.Sell, 5, 60)
	sameDay := testutil.CreateTestTrade(t, db, user.ID, testutil.Day(3), "NIFTYBEES", holdings.Buy, 2, 200)
	testutil.CreateTestTrade(t, db, other.ID, testutil.Day(2), "GOLDBEES", holdings.Buy, 1, 1)

	t.Run("newest_first", func(t *testing.T) {
		page, err := svc.ListTrades(ctx, user.ID, pagination.PageRequest{}, TradeFilter{})
		testutil.AssertNoError(t, err)

		if page.TotalItems != 3 {
			t.Fatalf("expected 3 trades, got %d", page.TotalItems)
		}
		want := []string{sameDay.ID, second.ID, first.ID}
		for i, id := range want {
			if page.Data[i].ID != id {
				t.Errorf("position %d: expected %s, got %s", i, id, page.Data[i].ID)
			}
		}
	})

	t.Run("paginates", func(t *testing.T) {
		page, err := svc.ListTrades(ctx, user.ID, pagination.PageRequest{Page: 2, PageSize: 2}, TradeFilter{})
		testutil.AssertNoError(t, err)
		if len(page.Data) != 1 || page.TotalPages != 2 || page.Data[0].ID != first.ID {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("filters", func(t *testing.T) {
		sell := holdings.Sell
		page, err := svc.ListTrades(ctx, user.ID, pagination.PageRequest{}, TradeFilter{Symbol: ptr("goldbees"), Type: &sell})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 || page.Data[0].ID != second.ID {
			t.Errorf("expected only the GOLDBEES sell, got %+v", page.Data)
		}

		page, err = svc.ListTrades(ctx, user.ID, pagination.PageRequest{}, TradeFilter{
			FromDate: ptr(testutil.Day(2)),
			ToDate:   ptr(testutil.Day(3)),
		})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 2 {
			t.Errorf("expected 2 trades in range, got %d", page.TotalItems)
		}
	})

	t.Run("missing_identity_is_empty", func(t *testing.T) {
		page, err := svc.ListTrades(ctx, "", pagination.PageRequest{}, TradeFilter{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 0 || len(page.Data) != 0 {
			t.Errorf("expected empty page, got %+v", page)
		}

		all, err := svc.AllTrades(ctx, "")
		testutil.AssertNoError(t, err)
		if all == nil || len(all) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", all)
		}
	})
}

func TestGetTrade(t *testing.T) {
	db, svc, _ := setupTradeService(t)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	trade := testutil.CreateTestTrade(t, db, user.ID, testutil.Day(1), "ABC", holdings.Buy, 1, 1)

	got, err := svc.GetTrade(ctx, user.ID, trade.ID)
	testutil.AssertNoError(t, err)
	if got.ID != trade.ID {
		t.Errorf("expected %s, got %s", trade.ID, got.ID)
	}

	_, err = svc.GetTrade(ctx, other.ID, trade.ID)
	testutil.AssertAppError(t, err, "TRADE_NOT_FOUND")
}

func TestDeleteTrade(t *testing.T) {
	t.Run("deletes_and_publishes", func(t *testing.T) {
		db, svc, hub := setupTradeService(t)
		user := testutil.CreateTestUser(t, db)
		trade := testutil.CreateTestTrade(t, db, user.ID, testutil.Day(1), "ABC", holdings.Buy, 1, 1)
		ch, cancel := hub.Subscribe(user.ID)
		defer cancel()

		testutil.AssertNoError(t, svc.DeleteTrade(ctx, user.ID, trade.ID))
		expectNotified(t, ch)

		_, err := svc.GetTrade(ctx, user.ID, trade.ID)
		testutil.AssertAppError(t, err, "TRADE_NOT_FOUND")

		err = svc.DeleteTrade(ctx, user.ID, trade.ID)
		testutil.AssertAppError(t, err, "TRADE_NOT_FOUND")
	})

	t.Run("other_users_trade", func(t *testing.T) {
		db, svc, hub := setupTradeService(t)
		owner := testutil.CreateTestUser(t, db)
		intruder := testutil.CreateTestUser(t, db)
		trade := testutil.CreateTestTrade(t, db, owner.ID, testutil.Day(1), "ABC", holdings.Buy, 1, 1)
		ch, cancel := hub.Subscribe(owner.ID)
		defer cancel()

		err := svc.DeleteTrade(ctx, intruder.ID, trade.ID)
		testutil.AssertAppError(t, err, "TRADE_NOT_FOUND")
		expectQuiet(t, ch)

		_, err = svc.GetTrade(ctx, owner.ID, trade.ID)
		testutil.AssertNoError(t, err)
	})

	t.Run("requires_identity", func(t *testing.T) {
		_, svc, _ := setupTradeService(t)
		err := svc.DeleteTrade(ctx, "", "0190a0b4-7c3e-7b11-9c9b-3f1a2b3c4d5e")
		testutil.AssertAppError(t, err, "UNAUTHORIZED")
	})
}

func TestSymbols(t *testing.T) {
	db, svc, _ := setupTradeService(t)
	user := testutil.CreateTestUser(t, db)
	testutil.CreateTestTrade(t, db, user.ID, testutil.Day(1), "TCS", holdings.Buy, 1, 1)
	testutil.CreateTestTrade(t, db, user.ID, testutil.Day(2), "GOLDBEES", holdings.Buy, 1, 1)
	testutil.CreateTestTrade(t, db, user.ID, testutil.Day(3), "INFY", holdings.Buy, 1, 1)
	testutil.CreateTestTrade(t, db, user.ID, testutil.Day(4), "INFY", holdings.Sell, 1, 1)

	got, err := svc.Symbols(ctx, user.ID)
	testutil.AssertNoError(t, err)

	want := []string{"GOLDBEES", "NIFTYBEES", "SILVERBEES", "INFY", "TCS"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	anon, err := svc.Symbols(ctx, "")
	testutil.AssertNoError(t, err)
	if len(anon) != len(QuickPicks) {
		t.Errorf("expected only quick picks, got %v", anon)
	}
}

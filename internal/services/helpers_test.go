package services

import (
	"context"
	"testing"

	"goldfolio/internal/feed"
	"goldfolio/internal/testutil"

	"gorm.io/gorm"
)

// ctx is the context passed to service calls in tests.
var ctx = context.Background()

// setupTradeService returns a trade service over a fresh database and the hub
// it publishes to.
func setupTradeService(t *testing.T) (*gorm.DB, TradeServicer, *feed.Hub) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	hub := feed.NewHub()
	return db, NewTradeService(db, hub), hub
}

func ptr[T any](v T) *T { return &v }

package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"goldfolio/internal/holdings"
	"goldfolio/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestTrade inserts a trade dated date. Symbol and type are stored as
// given, so callers normalize them when it matters.
func CreateTestTrade(t *testing.T, db *gorm.DB, userID string, date time.Time, symbol string, tradeType holdings.TradeType, quantity, price float64) *models.Trade {
	t.Helper()

	trade := &models.Trade{
		UserID:   userID,
		Date:     date.UTC(),
		Symbol:   symbol,
		Type:     tradeType,
		Quantity: quantity,
		Price:    price,
	}
	if err := db.Create(trade).Error; err != nil {
		t.Fatalf("failed to create test trade: %v", err)
	}
	return trade
}

// Day returns midnight UTC n days after 2024-01-01.
func Day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

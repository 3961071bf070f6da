package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"smartspend/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestPassword is the raw password used by user fixtures.
const TestPassword = "password123"

// NewTestUser builds a user with a hashed password and unique email.
// MinCost keeps the fixtures fast; production hashing uses a higher factor.
func NewTestUser(t *testing.T) *models.User {
	t.Helper()
	return NewTestUserWithEmail(t, fmt.Sprintf("user%d@test.com", nextID()))
}

// NewTestUserWithEmail builds a user with the given email.
func NewTestUserWithEmail(t *testing.T, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now()
	return &models.User{
		ID:        primitive.NewObjectID(),
		Name:      fmt.Sprintf("Test User %d", nextID()),
		Email:     email,
		Password:  string(hash),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestTransaction builds an expense transaction owned by the given user.
func NewTestTransaction(t *testing.T, userID primitive.ObjectID) *models.Transaction {
	t.Helper()

	now := time.Now()
	return &models.Transaction{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Type:        models.TransactionTypeExpense,
		Category:    fmt.Sprintf("Category %d", nextID()),
		Amount:      42.50,
		Description: "",
		Date:        now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"smartspend/internal/models"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, name, email, password string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
}

// TransactionFilter holds optional filter and sort parameters for listing
// transactions. The owner scope is never part of the filter: it is applied
// unconditionally by the service from the authenticated identity.
type TransactionFilter struct {
	Type      *models.TransactionType
	Category  *string
	StartDate *time.Time
	EndDate   *time.Time
	SortBy    string
	Order     string
}

// TransactionUpdate holds the mutable fields of a transaction for partial
// updates. Nil fields are left unchanged.
type TransactionUpdate struct {
	Type        *models.TransactionType
	Category    *string
	Amount      *float64
	Description *string
	Date        *time.Time
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	ListTransactions(ctx context.Context, userID primitive.ObjectID, filter TransactionFilter) ([]models.Transaction, error)
	CreateTransaction(ctx context.Context, userID primitive.ObjectID, transactionType models.TransactionType, category string, amount float64, description string, date time.Time) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID primitive.ObjectID, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID primitive.ObjectID) error
}

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "smartspend/internal/errors"
	"smartspend/internal/models"
)

// sortFields whitelists the fields a client may sort by. Anything else is
// rejected instead of being forwarded to the store's sort clause.
var sortFields = map[string]string{
	"date":     "date",
	"amount":   "amount",
	"category": "category",
}

const (
	defaultSortField = "date"
	defaultSortOrder = "desc"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	transactions *mongo.Collection
}

// NewTransactionService creates a new TransactionServicer backed by the
// given transactions collection.
func NewTransactionService(transactions *mongo.Collection) TransactionServicer {
	return &transactionService{transactions: transactions}
}

// ListTransactions retrieves the user's transactions matching the filter,
// ordered by the requested sort key and direction.
func (s *transactionService) ListTransactions(ctx context.Context, userID primitive.ObjectID, filter TransactionFilter) ([]models.Transaction, error) {
	query := buildListFilter(userID, filter)

	sort, err := buildListSort(filter)
	if err != nil {
		return nil, err
	}

	cursor, err := s.transactions.Find(ctx, query, options.Find().SetSort(sort))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	defer cursor.Close(ctx)

	transactions := []models.Transaction{}
	if err := cursor.All(ctx, &transactions); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// buildListFilter builds the MongoDB filter document for a listing query.
// The owner scope is applied first and cannot be overridden by any client
// supplied filter. The date range is inclusive on both ends.
func buildListFilter(userID primitive.ObjectID, f TransactionFilter) bson.M {
	query := bson.M{"user": userID}

	if f.Type != nil {
		query["type"] = *f.Type
	}
	if f.Category != nil {
		query["category"] = *f.Category
	}
	if f.StartDate != nil || f.EndDate != nil {
		dateRange := bson.M{}
		if f.StartDate != nil {
			dateRange["$gte"] = *f.StartDate
		}
		if f.EndDate != nil {
			dateRange["$lte"] = *f.EndDate
		}
		query["date"] = dateRange
	}

	return query
}

// buildListSort builds the single-key sort document. Sort keys outside the
// whitelist are rejected rather than passed through to the store.
func buildListSort(f TransactionFilter) (bson.D, error) {
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = defaultSortField
	}
	field, ok := sortFields[sortBy]
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "sortBy must be one of: date, amount, category")
	}

	order := f.Order
	if order == "" {
		order = defaultSortOrder
	}
	direction := -1
	switch order {
	case "asc":
		direction = 1
	case "desc":
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "order must be asc or desc")
	}

	return bson.D{{Key: field, Value: direction}}, nil
}

// CreateTransaction creates a new transaction owned by the given user. The
// owner comes from the authenticated identity; the payload cannot set it.
func (s *transactionService) CreateTransaction(ctx context.Context, userID primitive.ObjectID, transactionType models.TransactionType, category string, amount float64, description string, date time.Time) (*models.Transaction, error) {
	if !transactionType.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	now := time.Now()
	if date.IsZero() {
		date = now
	}

	transaction := &models.Transaction{
		UserID:      userID,
		Type:        transactionType,
		Category:    category,
		Amount:      amount,
		Description: description,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result, err := s.transactions.InsertOne(ctx, transaction)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	transaction.ID = result.InsertedID.(primitive.ObjectID)
	return transaction, nil
}

// UpdateTransaction applies a partial update to a transaction owned by the
// user. Only the fields present in the update are changed, each re-validated
// with the same rules as creation. A transaction owned by someone else is
// indistinguishable from one that never existed.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID primitive.ObjectID, update TransactionUpdate) (*models.Transaction, error) {
	set, err := buildUpdateDocument(update)
	if err != nil {
		return nil, err
	}

	var transaction models.Transaction
	err = s.transactions.FindOneAndUpdate(ctx,
		ownedTransactionFilter(userID, transactionID),
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&transaction)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// buildUpdateDocument validates the supplied fields and builds the $set
// document for a partial update. Unsupplied fields are left untouched.
func buildUpdateDocument(update TransactionUpdate) (bson.M, error) {
	set := bson.M{}

	if update.Type != nil {
		if !update.Type.Valid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
		}
		set["type"] = *update.Type
	}
	if update.Category != nil {
		category := strings.TrimSpace(*update.Category)
		if category == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category cannot be empty")
		}
		set["category"] = category
	}
	if update.Amount != nil {
		if *update.Amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		set["amount"] = *update.Amount
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Date != nil {
		set["date"] = *update.Date
	}

	set["updatedAt"] = time.Now()
	return set, nil
}

// DeleteTransaction permanently removes a transaction owned by the user.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID primitive.ObjectID) error {
	result, err := s.transactions.DeleteOne(ctx, ownedTransactionFilter(userID, transactionID))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if result.DeletedCount == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// ownedTransactionFilter matches a transaction by ID only when it is owned
// by the given user.
func ownedTransactionFilter(userID, transactionID primitive.ObjectID) bson.M {
	return bson.M{"_id": transactionID, "user": userID}
}

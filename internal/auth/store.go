// Package auth stores dashboard accounts, subscription plans and mock
// payment transactions. Two backends implement the same contract: an
// in-memory store for local/mock operation and a Postgres store for shared
// deployments.
package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/aurasignal/signal-dashboard/internal/models"
)

var (
	// ErrInvalidCredentials is returned by Login on a bad email/password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned by Register on a duplicate email or phone.
	ErrUserExists = errors.New("user with this email or phone already exists")
	// ErrUserNotFound is returned when the uid is unknown.
	ErrUserNotFound = errors.New("user not found")
)

// Store is the account/subscription/payment contract the dashboard needs.
type Store interface {
	Register(ctx context.Context, email, password, phoneNumber string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	UpdatePlan(ctx context.Context, uid, plan string) error
	RecordTransaction(ctx context.Context, tx *models.Transaction) error
	// ListTransactions returns the user's transactions, newest first.
	ListTransactions(ctx context.Context, uid string) ([]*models.Transaction, error)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

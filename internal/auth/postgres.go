package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/aurasignal/signal-dashboard/internal/models"
)

// PostgresStore backs the auth contract with PostgreSQL.
type PostgresStore struct {
	conn *sql.DB
}

// NewPostgresStore connects and verifies the database is reachable.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{conn: conn}, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.conn.Close()
}

// Migrate applies all pending migrations from migrationsPath.
func (s *PostgresStore) Migrate(migrationsPath string) error {
	driver, err := migratepg.WithInstance(s.conn, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Register(ctx context.Context, email, password, phoneNumber string) (*models.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		UID:              uuid.NewString(),
		Email:            email,
		PhoneNumber:      phoneNumber,
		SubscriptionPlan: models.PlanFree,
		CreatedAt:        time.Now(),
	}

	query := `
		INSERT INTO users (uid, email, password_hash, phone_number, subscription_plan, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.conn.ExecContext(ctx, query,
		user.UID, user.Email, hash, nullString(user.PhoneNumber), user.SubscriptionPlan, user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) Login(ctx context.Context, email, password string) (*models.User, error) {
	query := `
		SELECT uid, email, password_hash, phone_number, subscription_plan, created_at
		FROM users
		WHERE email = $1
	`
	var (
		user  models.User
		hash  string
		phone sql.NullString
	)
	err := s.conn.QueryRowContext(ctx, query, email).Scan(
		&user.UID, &user.Email, &hash, &phone, &user.SubscriptionPlan, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !checkPassword(hash, password) {
		return nil, ErrInvalidCredentials
	}
	if phone.Valid {
		user.PhoneNumber = phone.String
	}
	return &user, nil
}

func (s *PostgresStore) UpdatePlan(ctx context.Context, uid, plan string) error {
	query := `UPDATE users SET subscription_plan = $2 WHERE uid = $1`
	res, err := s.conn.ExecContext(ctx, query, uid, plan)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) RecordTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}

	var metadata []byte
	if tx.Metadata != nil {
		var err error
		metadata, err = json.Marshal(tx.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction metadata: %w", err)
		}
	}

	query := `
		INSERT INTO transactions (id, user_id, amount, currency, method, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.conn.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.Amount, tx.Currency, tx.Method, metadata, tx.Timestamp,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, uid string) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, currency, method, metadata, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.conn.QueryContext(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		var (
			tx       models.Transaction
			amount   sql.NullString
			metadata []byte
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &amount, &tx.Currency, &tx.Method, &metadata, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if amount.Valid {
			tx.Amount, _ = decimal.NewFromString(amount.String)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode transaction metadata: %w", err)
			}
		}
		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

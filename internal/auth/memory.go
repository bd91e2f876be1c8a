package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aurasignal/signal-dashboard/internal/models"
)

type memoryUser struct {
	user         models.User
	passwordHash string
}

// MemoryStore is the pure-local backend. State survives only for the life of
// the process.
type MemoryStore struct {
	mu           sync.Mutex
	usersByUID   map[string]*memoryUser
	uidByEmail   map[string]string
	uidByPhone   map[string]string
	transactions map[string][]*models.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		usersByUID:   make(map[string]*memoryUser),
		uidByEmail:   make(map[string]string),
		uidByPhone:   make(map[string]string),
		transactions: make(map[string][]*models.Transaction),
	}
}

func (s *MemoryStore) Register(_ context.Context, email, password, phoneNumber string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uidByEmail[email]; ok {
		return nil, ErrUserExists
	}
	if phoneNumber != "" {
		if _, ok := s.uidByPhone[phoneNumber]; ok {
			return nil, ErrUserExists
		}
	}

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
	s.usersByUID[user.UID] = &memoryUser{user: user, passwordHash: hash}
	s.uidByEmail[email] = user.UID
	if phoneNumber != "" {
		s.uidByPhone[phoneNumber] = user.UID
	}
	out := user
	return &out, nil
}

func (s *MemoryStore) Login(_ context.Context, email, password string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.uidByEmail[email]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	mu := s.usersByUID[uid]
	if !checkPassword(mu.passwordHash, password) {
		return nil, ErrInvalidCredentials
	}
	out := mu.user
	return &out, nil
}

func (s *MemoryStore) UpdatePlan(_ context.Context, uid, plan string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.usersByUID[uid]
	if !ok {
		return ErrUserNotFound
	}
	mu.user.SubscriptionPlan = plan
	return nil
}

func (s *MemoryStore) RecordTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByUID[tx.UserID]; !ok {
		return ErrUserNotFound
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}
	stored := *tx
	s.transactions[tx.UserID] = append(s.transactions[tx.UserID], &stored)
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, uid string) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := s.transactions[uid]
	out := make([]*models.Transaction, len(txs))
	for i, tx := range txs {
		cp := *tx
		out[i] = &cp
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

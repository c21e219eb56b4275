package repositories

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prudhvinik1/authcore/internal/models"
)

// MemoryAccountRepository keeps accounts in process memory. It backs the
// "memory" store driver for local runs and the HTTP tests. Lookups return
// the earliest inserted match.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts []*models.Account
	nextID   int
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{}
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	account.ID = strconv.Itoa(r.nextID)
	stored := *account
	r.accounts = append(r.accounts, &stored)
	return nil
}

func (r *MemoryAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.ID == id })
}

func (r *MemoryAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Email == email })
}

func (r *MemoryAccountRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool {
		return a.Username == identifier || a.Email == identifier
	})
}

func (r *MemoryAccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.lookupLocked(id)
	if a == nil {
		return ErrNotFound
	}
	if a.LastLogin == nil || at.After(*a.LastLogin) {
		a.LastLogin = &at
	}
	return nil
}

func (r *MemoryAccountRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.lookupLocked(id)
	if a == nil {
		return nil, ErrNotFound
	}
	if update.FullName != nil {
		v := *update.FullName
		a.FullName = &v
	}
	if update.ProfileBio != nil {
		v := *update.ProfileBio
		a.ProfileBio = &v
	}
	return copyAccount(a), nil
}

// Len reports how many accounts are stored.
func (r *MemoryAccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

func (r *MemoryAccountRepository) find(match func(*models.Account) bool) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if match(a) {
			return copyAccount(a), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryAccountRepository) lookupLocked(id string) *models.Account {
	for _, a := range r.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func copyAccount(a *models.Account) *models.Account {
	cp := *a
	if a.LastLogin != nil {
		t := *a.LastLogin
		cp.LastLogin = &t
	}
	return &cp
}

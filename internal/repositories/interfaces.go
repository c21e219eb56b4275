package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/prudhvinik1/authcore/internal/models"
)

var ErrNotFound = errors.New("not found")

// AccountRepository is the credential store. Implementations make no
// atomicity promise across calls: GetByEmail followed by Create may race
// with a concurrent registration for the same email.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	// GetByUsernameOrEmail matches identifier against either field and
	// returns the first match if several accounts qualify.
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*models.Account, error)
	// UpdateLastLogin never moves the stored timestamp backwards.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Account, error)
}

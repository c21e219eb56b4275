package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prudhvinik1/authcore/internal/logging"
	"github.com/prudhvinik1/authcore/internal/models"
	"github.com/prudhvinik1/authcore/internal/repositories"
	"github.com/prudhvinik1/authcore/internal/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrAccountNotFound    = errors.New("account not found")
)

const (
	TokenTypeBearer = "bearer"

	defaultLastLoginTimeout = 5 * time.Second
)

var tracer = otel.Tracer("github.com/prudhvinik1/authcore/internal/services")

type LoginResult struct {
	AccessToken string
	TokenType   string
}

type AuthService struct {
	accountRepo      repositories.AccountRepository
	tokens           *TokenManager
	hasher           *utils.PasswordHasher
	logger           logging.Logger
	now              func() time.Time
	lastLoginTimeout time.Duration

	// in-flight last-login writes
	pending sync.WaitGroup

	dummyOnce sync.Once
	dummyHash string
}

type AuthServiceOption func(*AuthService)

func WithPasswordHasher(h *utils.PasswordHasher) AuthServiceOption {
	return func(s *AuthService) { s.hasher = h }
}

func WithLogger(l logging.Logger) AuthServiceOption {
	return func(s *AuthService) { s.logger = l }
}

func WithClock(now func() time.Time) AuthServiceOption {
	return func(s *AuthService) { s.now = now }
}

func WithLastLoginTimeout(d time.Duration) AuthServiceOption {
	return func(s *AuthService) { s.lastLoginTimeout = d }
}

func NewAuthService(accountRepo repositories.AccountRepository, tokens *TokenManager, opts ...AuthServiceOption) *AuthService {
	s := &AuthService{
		accountRepo:      accountRepo,
		tokens:           tokens,
		hasher:           utils.NewPasswordHasher(utils.PBKDF2Rounds),
		logger:           logging.Nop(),
		now:              time.Now,
		lastLoginTimeout: defaultLastLoginTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account for a fresh email. The duplicate check and
// the insert are separate store calls, so two concurrent registrations for
// the same email can both succeed.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (_ *models.Account, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer func() { endSpan(span, err) }()

	existing, err := s.accountRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrDuplicateEmail
	}
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    s.now().UTC(),
		IsActive:     true,
		IsVerified:   false,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	span.SetAttributes(attribute.String("account.id", account.ID))
	s.logger.Info(ctx, "account registered", "account_id", account.ID)

	return account, nil
}

// Login verifies credentials and issues a bearer token. An unknown
// identifier and a wrong password fail with the same ErrInvalidCredentials,
// and both pay the cost of one password verification.
func (s *AuthService) Login(ctx context.Context, usernameOrEmail, password string) (_ *LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer func() { endSpan(span, err) }()

	account, err := s.FindByUsernameOrEmail(ctx, usernameOrEmail)
	if errors.Is(err, repositories.ErrNotFound) {
		s.hasher.Check(s.dummyPasswordHash(), password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !s.hasher.Check(account.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	s.recordLastLogin(ctx, account.ID, s.now().UTC())

	token, err := s.tokens.IssueDefault(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	span.SetAttributes(attribute.String("account.id", account.ID))

	return &LoginResult{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
	}, nil
}

// FindByUsernameOrEmail returns the account whose username or email equals
// identifier, or repositories.ErrNotFound. With duplicate rows the store's
// first match wins.
func (s *AuthService) FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.Account, error) {
	return s.accountRepo.GetByUsernameOrEmail(ctx, identifier)
}

// VerifyToken returns the account id carried by a bearer token.
func (s *AuthService) VerifyToken(tokenString string) (string, error) {
	return s.tokens.Validate(tokenString)
}

func (s *AuthService) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, accountID string, update models.ProfileUpdate) (_ *models.Account, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.UpdateProfile", trace.WithAttributes(attribute.String("account.id", accountID)))
	defer func() { endSpan(span, err) }()

	if update.Empty() {
		return s.GetAccount(ctx, accountID)
	}

	account, err := s.accountRepo.UpdateProfile(ctx, accountID, update)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return account, nil
}

// Wait blocks until all in-flight last-login writes have finished.
func (s *AuthService) Wait() {
	s.pending.Wait()
}

// recordLastLogin writes the login time in the background. The caller never
// waits on it and its failure is only logged.
func (s *AuthService) recordLastLogin(ctx context.Context, accountID string, at time.Time) {
	ctx = context.WithoutCancel(ctx)
	s.pending.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, s.lastLoginTimeout)
		defer cancel()

		if err := s.accountRepo.UpdateLastLogin(ctx, accountID, at); err != nil {
			s.logger.Warn(ctx, "failed to update last login", "account_id", accountID, "error", err)
		}
	})
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			s.logger.Error(context.Background(), "failed to build dummy password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

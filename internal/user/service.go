package user

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kasirku/backend-pos/internal/auth"
	"github.com/kasirku/backend-pos/internal/common"
)

// ErrNotFound indicates the account does not exist.
var ErrNotFound = errors.New("user: not found")

// ErrDuplicateUsername indicates a username collision.
var ErrDuplicateUsername = errors.New("user: username already exists")

// Roles accepted for operator accounts.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// Account is the serialisable view of an operator. The PIN never leaves
// the service.
type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input carries writable account fields. An empty PIN on update keeps the
// stored credential.
type Input struct {
	Username string
	PIN      string
	Role     string
}

// Store is the persistence surface for operator accounts.
type Store interface {
	List(ctx context.Context) ([]Account, error)
	Get(ctx context.Context, id string) (Account, error)
	Create(ctx context.Context, username, storedPIN, role string) (Account, error)
	Update(ctx context.Context, id, username, role string) (Account, error)
	UpdatePIN(ctx context.Context, id, storedPIN string) error
	Delete(ctx context.Context, id string) error
}

// Service manages operator accounts for the admin back office.
type Service struct {
	Store    Store
	Verifier auth.PINVerifier
}

// NewService constructs a Service.
func NewService(store Store, verifier auth.PINVerifier) (*Service, error) {
	if store == nil {
		return nil, errors.New("user: store is required")
	}
	if verifier == nil {
		verifier = auth.PlainPIN{}
	}
	return &Service{Store: store, Verifier: verifier}, nil
}

// List returns every operator account.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.Store.List(ctx)
}

// Get returns one account by id.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	account, err := s.Store.Get(ctx, id)
	if err != nil {
		return Account{}, mapError(err)
	}
	return account, nil
}

// Create registers a new operator. The PIN is stored via the configured
// verifier scheme.
func (s *Service) Create(ctx context.Context, input Input) (Account, error) {
	if err := validateInput(input, true); err != nil {
		return Account{}, err
	}
	stored, err := s.Verifier.Hash(input.PIN)
	if err != nil {
		return Account{}, err
	}
	account, err := s.Store.Create(ctx, strings.TrimSpace(input.Username), stored, input.Role)
	if err != nil {
		return Account{}, mapError(err)
	}
	return account, nil
}

// Update changes username/role and, when a PIN is supplied, the credential.
func (s *Service) Update(ctx context.Context, id string, input Input) (Account, error) {
	if err := validateInput(input, false); err != nil {
		return Account{}, err
	}
	account, err := s.Store.Update(ctx, id, strings.TrimSpace(input.Username), input.Role)
	if err != nil {
		return Account{}, mapError(err)
	}
	if input.PIN != "" {
		stored, err := s.Verifier.Hash(input.PIN)
		if err != nil {
			return Account{}, err
		}
		if err := s.Store.UpdatePIN(ctx, id, stored); err != nil {
			return Account{}, mapError(err)
		}
	}
	return account, nil
}

// Delete removes an operator account.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return mapError(err)
	}
	return nil
}

func validateInput(input Input, requirePIN bool) error {
	if strings.TrimSpace(input.Username) == "" {
		return common.NewAppError("VALIDATION_ERROR", "username is required", http.StatusBadRequest, nil)
	}
	if requirePIN && input.PIN == "" {
		return common.NewAppError("VALIDATION_ERROR", "pin is required", http.StatusBadRequest, nil)
	}
	if input.Role != RoleAdmin && input.Role != RoleCashier {
		return common.NewAppError("VALIDATION_ERROR", "role must be admin or cashier", http.StatusBadRequest, nil)
	}
	return nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("NOT_FOUND", "user not found", http.StatusNotFound, err)
	case errors.Is(err, ErrDuplicateUsername):
		return common.NewAppError("CONFLICT", "username already exists", http.StatusConflict, err)
	default:
		return err
	}
}

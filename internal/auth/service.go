package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/kasirku/backend-pos/internal/common"
)

const defaultAccessTTL = 12 * time.Hour

const roleClaim = "role"
const usernameClaim = "username"

// ErrUserNotFound indicates no user matches the given identifier.
var ErrUserNotFound = errors.New("auth: user not found")

// User is a stored operator account. PIN carries whatever the configured
// verifier stored (plaintext in the observed scheme, a hash otherwise) and
// must never be serialised to clients.
type User struct {
	ID       string
	Username string
	PIN      string
	Role     string
}

// Store is the user lookup the login flow depends on.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
}

// LoginResult bundles the operator snapshot and token material returned
// after a successful login.
type LoginResult struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
	AccessToken  string    `json:"access_token"`
	AccessExpiry time.Time `json:"access_expires_at"`
}

// Config configures the auth service.
type Config struct {
	Store          Store
	Verifier       PINVerifier
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
}

// Service coordinates PIN authentication and session tokens.
type Service struct {
	store     Store
	verifier  PINVerifier
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
	issuer    string
	audience  string
	clockSkew time.Duration
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	verifier := cfg.Verifier
	if verifier == nil {
		verifier = PlainPIN{}
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "backend-pos"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "pos-terminal"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}

	return &Service{
		store:     cfg.Store,
		verifier:  verifier,
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
		signer:    jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}, nil
}

// Login checks the username/PIN pair and issues a session token. Failures do
// not reveal whether the username or the PIN was wrong.
func (s *Service) Login(ctx context.Context, username, pin string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || pin == "" {
		return LoginResult{}, common.NewAppError("VALIDATION_ERROR", "username and pin are required", http.StatusBadRequest, nil)
	}
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, invalidCredentials(err)
		}
		return LoginResult{}, err
	}
	ok, err := s.verifier.Verify(pin, user.PIN)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		return LoginResult{}, invalidCredentials(nil)
	}

	token, expiry, err := s.signAccessToken(user)
	if err != nil {
		return LoginResult{}, err
	}
	var out LoginResult
	out.User.ID = user.ID
	out.User.Username = user.Username
	out.User.Role = user.Role
	out.AccessToken = token
	out.AccessExpiry = expiry
	return out, nil
}

// ParseAccessToken validates an access token and returns the operator identity.
func (s *Service) ParseAccessToken(token string) (common.Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return common.Identity{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return common.Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return common.Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret))
	if err != nil {
		return common.Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return common.Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	identity := common.Identity{UserID: parsed.Subject()}
	if v, ok := parsed.Get(roleClaim); ok {
		if role, ok := v.(string); ok {
			identity.Role = role
		}
	}
	if v, ok := parsed.Get(usernameClaim); ok {
		if name, ok := v.(string); ok {
			identity.Username = name
		}
	}
	return identity, nil
}

func (s *Service) signAccessToken(user User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	builder := jwt.NewBuilder().
		Subject(user.ID).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim(roleClaim, user.Role).
		Claim(usernameClaim, user.Username)
	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func invalidCredentials(err error) *common.AppError {
	return common.NewAppError("UNAUTHORIZED", "username or pin incorrect", http.StatusUnauthorized, err)
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

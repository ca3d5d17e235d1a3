package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"book-store/internal/domain"
	"book-store/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for password and client secret hashes.
const BcryptCost = 10

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	// OAuthScope is granted to every password-grant token.
	OAuthScope = "read write"
)

// AuthService issues and verifies the OAuth2 and JWT credentials.
type AuthService interface {
	// PasswordGrant checks the client and the customer's password and
	// returns an opaque OAuth2 access token.
	PasswordGrant(ctx context.Context, clientID, clientSecret, username, password string) (*domain.OAuthAccessToken, error)
	// IssueTokenPair exchanges a live opaque token for an access/refresh JWT pair.
	IssueTokenPair(ctx context.Context, opaqueToken string) (*TokenPair, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	RevokeRefreshToken(ctx context.Context, refreshToken string) error
	VerifyAccessToken(token string) (*Claims, error)
	// CreateApplication registers an OAuth2 client and returns its plain secret once.
	CreateApplication(ctx context.Context, name string) (*domain.OAuthApplication, string, error)
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// TokenPair is the JWT pair handed to API clients.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Claims represents the JWT claims
type Claims struct {
	CustomerID uuid.UUID   `json:"user_id"`
	Role       domain.Role `json:"role"`
	TokenType  string      `json:"token_type"`
	jwt.RegisteredClaims
}

// AuthOptions holds token lifetimes and the signing secret.
type AuthOptions struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	OAuthTokenTTL   time.Duration
	Now             func() time.Time
}

type authService struct {
	store repository.Store
	opts  AuthOptions
}

func NewAuthService(store repository.Store, opts AuthOptions) AuthService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &authService{store: store, opts: opts}
}

func (s *authService) PasswordGrant(ctx context.Context, clientID, clientSecret, username, password string) (*domain.OAuthAccessToken, error) {
	app, err := s.store.OAuth().FindApplicationByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(app.ClientSecretHash), []byte(clientSecret)); err != nil {
		return nil, ErrInvalidClient
	}

	customer, err := s.store.Customers().FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	if err := verifyPassword(customer.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.opts.Now()
	token := &domain.OAuthAccessToken{
		Token:         randomToken(),
		CustomerID:    customer.ID,
		ApplicationID: app.ID,
		Scope:         OAuthScope,
		ExpiresAt:     now.Add(s.opts.OAuthTokenTTL),
		CreatedAt:     now,
	}
	if err := s.store.OAuth().CreateAccessToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}

	return token, nil
}

func (s *authService) IssueTokenPair(ctx context.Context, opaqueToken string) (*TokenPair, error) {
	token, err := s.store.OAuth().FindAccessToken(ctx, opaqueToken)
	if err != nil {
		if errors.Is(err, repository.ErrAccessTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find access token: %w", err)
	}
	if !s.opts.Now().Before(token.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	customer, err := s.store.Customers().FindByID(ctx, token.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}

	access, err := s.signToken(customer, TokenTypeAccess, uuid.NewString(), s.opts.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := s.generateRefreshToken(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// RefreshAccessToken generates a new access token using a valid refresh token
func (s *authService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	stored, err := s.store.RefreshTokens().FindByToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}
	if s.opts.Now().After(stored.ExpiresAt) {
		return "", ErrTokenExpired
	}

	customer, err := s.store.Customers().FindByID(ctx, stored.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find customer: %w", err)
	}

	access, err := s.signToken(customer, TokenTypeAccess, uuid.NewString(), s.opts.AccessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return access, nil
}

// RevokeRefreshToken invalidates the refresh token. Unknown tokens count as
// already revoked.
func (s *authService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	claims, err := s.parse(refreshToken, TokenTypeRefresh)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		return err
	}

	if err := s.store.RefreshTokens().Revoke(ctx, claims.ID); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *authService) VerifyAccessToken(token string) (*Claims, error) {
	return s.parse(token, TokenTypeAccess)
}

func (s *authService) CreateApplication(ctx context.Context, name string) (*domain.OAuthApplication, string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, "", domain.NewValidationError("name", "must not be blank")
	}

	secret := randomToken() + randomToken()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash client secret: %w", err)
	}

	app := &domain.OAuthApplication{
		ID:               uuid.New(),
		Name:             name,
		ClientID:         randomToken(),
		ClientSecretHash: string(hash),
		CreatedAt:        s.opts.Now(),
	}
	if err := s.store.OAuth().CreateApplication(ctx, app); err != nil {
		return nil, "", fmt.Errorf("failed to create application: %w", err)
	}

	return app, secret, nil
}

func (s *authService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.store.OAuth().DeleteExpiredAccessTokens(ctx, s.opts.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge access tokens: %w", err)
	}
	return n, nil
}

// parse validates signature, expiry and token type. Expired tokens return
// their claims together with ErrTokenExpired.
func (s *authService) parse(tokenString, tokenType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.opts.JWTSecret), nil
	}, jwt.WithTimeFunc(s.opts.Now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return claims, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *authService) signToken(customer *domain.Customer, tokenType, jti string, ttl time.Duration) (string, error) {
	now := s.opts.Now()
	claims := &Claims{
		CustomerID: customer.ID,
		Role:       customer.Role(),
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   customer.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.JWTSecret))
}

// generateRefreshToken signs a refresh JWT and records its jti so it can be revoked.
func (s *authService) generateRefreshToken(ctx context.Context, customer *domain.Customer) (string, error) {
	now := s.opts.Now()
	jti := uuid.NewString()

	record := &domain.RefreshToken{
		ID:         uuid.New(),
		CustomerID: customer.ID,
		Token:      jti,
		ExpiresAt:  now.Add(s.opts.RefreshTokenTTL),
		CreatedAt:  now,
	}
	if err := s.store.RefreshTokens().Create(ctx, record); err != nil {
		return "", err
	}

	return s.signToken(customer, TokenTypeRefresh, jti, s.opts.RefreshTokenTTL)
}

func hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

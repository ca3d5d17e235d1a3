package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"book-store/internal/domain"
)

var (
	ErrApplicationNotFound      = errors.New("oauth application not found")
	ErrApplicationAlreadyExists = errors.New("oauth application with this client id already exists")
	ErrAccessTokenNotFound      = errors.New("access token not found")
)

// OAuthRepository stores OAuth2 clients and the opaque tokens issued to them.
type OAuthRepository interface {
	CreateApplication(ctx context.Context, app *domain.OAuthApplication) error
	FindApplicationByClientID(ctx context.Context, clientID string) (*domain.OAuthApplication, error)
	CreateAccessToken(ctx context.Context, token *domain.OAuthAccessToken) error
	FindAccessToken(ctx context.Context, token string) (*domain.OAuthAccessToken, error)
	DeleteExpiredAccessTokens(ctx context.Context, before time.Time) (int64, error)
}

type oauthRepository struct {
	db DBTX
}

func NewOAuthRepository(db DBTX) OAuthRepository {
	return &oauthRepository{db: db}
}

func (r *oauthRepository) CreateApplication(ctx context.Context, app *domain.OAuthApplication) error {
	query := `
		INSERT INTO oauth_applications (id, name, client_id, client_secret_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, app.ID, app.Name, app.ClientID, app.ClientSecretHash, app.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrApplicationAlreadyExists
		}
		return fmt.Errorf("failed to create oauth application: %w", err)
	}

	return nil
}

func (r *oauthRepository) FindApplicationByClientID(ctx context.Context, clientID string) (*domain.OAuthApplication, error) {
	query := `
		SELECT id, name, client_id, client_secret_hash, created_at
		FROM oauth_applications
		WHERE client_id = $1
	`

	app := &domain.OAuthApplication{}
	err := r.db.QueryRowContext(ctx, query, clientID).Scan(
		&app.ID,
		&app.Name,
		&app.ClientID,
		&app.ClientSecretHash,
		&app.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to find oauth application: %w", err)
	}

	return app, nil
}

func (r *oauthRepository) CreateAccessToken(ctx context.Context, token *domain.OAuthAccessToken) error {
	query := `
		INSERT INTO oauth_access_tokens (token, customer_id, application_id, scope, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		token.Token,
		token.CustomerID,
		token.ApplicationID,
		token.Scope,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			if violatedConstraint(err) == "oauth_access_tokens_application_id_fkey" {
				return ErrApplicationNotFound
			}
			return ErrCustomerNotFound
		}
		return fmt.Errorf("failed to create access token: %w", err)
	}

	return nil
}

func (r *oauthRepository) FindAccessToken(ctx context.Context, token string) (*domain.OAuthAccessToken, error) {
	query := `
		SELECT token, customer_id, application_id, scope, expires_at, created_at
		FROM oauth_access_tokens
		WHERE token = $1
	`

	accessToken := &domain.OAuthAccessToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&accessToken.Token,
		&accessToken.CustomerID,
		&accessToken.ApplicationID,
		&accessToken.Scope,
		&accessToken.ExpiresAt,
		&accessToken.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccessTokenNotFound
		}
		return nil, fmt.Errorf("failed to find access token: %w", err)
	}

	return accessToken, nil
}

func (r *oauthRepository) DeleteExpiredAccessTokens(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM oauth_access_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired access tokens: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

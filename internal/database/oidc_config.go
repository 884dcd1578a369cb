package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/studydesk/api/internal/models"
)

// OIDCConfigRepository handles OIDC provider registrations in the database.
type OIDCConfigRepository struct {
	db *DB
}

// NewOIDCConfigRepository creates a new OIDC config repository.
func NewOIDCConfigRepository(db *DB) *OIDCConfigRepository {
	return &OIDCConfigRepository{db: db}
}

const oidcConfigColumns = `id, provider, issuer, domain, client_id, client_secret, redirect_uri, jwks_url, created_at, updated_at`

func scanOIDCConfig(row interface{ Scan(...any) error }) (*models.OIDCConfig, error) {
	c := &models.OIDCConfig{}
	err := row.Scan(
		&c.ID,
		&c.Provider,
		&c.Issuer,
		&c.Domain,
		&c.ClientID,
		&c.ClientSecret,
		&c.RedirectURI,
		&c.JWKSUrl,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create stores a new provider registration.
func (r *OIDCConfigRepository) Create(ctx context.Context, config *models.OIDCConfig) error {
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO oidc_config (`+oidcConfigColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`,
		config.ID,
		config.Provider,
		config.Issuer,
		config.Domain,
		config.ClientID,
		config.ClientSecret,
		config.RedirectURI,
		config.JWKSUrl,
		now,
		now,
	).Scan(&config.CreatedAt, &config.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create oidc config: %w", err)
	}
	return nil
}

// GetByProvider retrieves a registration by provider name.
func (r *OIDCConfigRepository) GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+oidcConfigColumns+`
		FROM oidc_config
		WHERE provider = $1
	`, provider)
	config, err := scanOIDCConfig(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("oidc config not found for provider %s: %w", provider, err)
	}
	if err != nil {
		return nil, fmt.Errorf("get oidc config: %w", err)
	}
	return config, nil
}

// GetAll retrieves every provider registration, ordered by provider name.
func (r *OIDCConfigRepository) GetAll(ctx context.Context) ([]*models.OIDCConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+oidcConfigColumns+`
		FROM oidc_config
		ORDER BY provider
	`)
	if err != nil {
		return nil, fmt.Errorf("query oidc configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.OIDCConfig
	for rows.Next() {
		config, err := scanOIDCConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan oidc config: %w", err)
		}
		configs = append(configs, config)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate oidc configs: %w", err)
	}
	return configs, nil
}

// Update rewrites a registration identified by provider name.
func (r *OIDCConfigRepository) Update(ctx context.Context, config *models.OIDCConfig) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE oidc_config
		SET issuer = $2, domain = $3, client_id = $4, client_secret = $5, redirect_uri = $6, jwks_url = $7, updated_at = $8
		WHERE provider = $1
		RETURNING updated_at
	`,
		config.Provider,
		config.Issuer,
		config.Domain,
		config.ClientID,
		config.ClientSecret,
		config.RedirectURI,
		config.JWKSUrl,
		time.Now(),
	).Scan(&config.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("oidc config not found")
	}
	if err != nil {
		return fmt.Errorf("update oidc config: %w", err)
	}
	return nil
}

// Delete removes a registration by provider name.
func (r *OIDCConfigRepository) Delete(ctx context.Context, provider string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM oidc_config WHERE provider = $1`, provider)
	if err != nil {
		return fmt.Errorf("delete oidc config: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("oidc config not found")
	}
	return nil
}

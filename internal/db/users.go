package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jonathan/campaign-studio/internal/store"
	"github.com/jonathan/campaign-studio/internal/types"
)

// uniqueViolation is the SQLSTATE code for a unique constraint violation.
const uniqueViolation = "23505"

// CreateUser inserts a new account.
func (db *DB) CreateUser(ctx context.Context, name, email, passwordHash, company string, tier types.Tier) (*types.User, error) {
	user := &types.User{
		Name:    name,
		Email:   strings.ToLower(email),
		Company: company,
		Tier:    tier,
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, company, tier)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		user.Name, user.Email, passwordHash, user.Company, user.Tier,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("user %s: %w", user.Email, store.ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves an account and its password hash by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*types.User, string, error) {
	var user types.User
	var passwordHash string
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, company, tier, created_at, updated_at
		 FROM users WHERE email = $1`,
		strings.ToLower(email),
	).Scan(&user.ID, &user.Name, &user.Email, &passwordHash, &user.Company,
		&user.Tier, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", fmt.Errorf("user %s: %w", email, store.ErrNotFound)
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}
	return &user, passwordHash, nil
}

// GetUser retrieves an account by ID.
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (*types.User, error) {
	var user types.User
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, email, company, tier, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Company, &user.Tier,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apiproject/userapi/internal/model"
)

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation      = "23505"
	pgStringDataTooLong    = "22001"
	pgProgramLimitExceeded = "54000" // index row too large
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS users_name_idx ON users (name)`,
}

const (
	pgInsertUser = `
		INSERT INTO users (name, email)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	pgListUsers  = `SELECT id, name, email, created_at FROM users ORDER BY id`
	pgGetUser    = `SELECT id, name, email, created_at FROM users WHERE id = $1`
	pgDeleteUser = `DELETE FROM users WHERE id = $1`
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool      *pgxpool.Pool
	opTimeout time.Duration
}

// OpenPostgres creates a pool for opts.DSN and verifies the connection.
func OpenPostgres(ctx context.Context, opts Options) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	if opts.MaxOpenConns > 0 {
		config.MaxConns = int32(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 && int32(opts.MaxIdleConns) <= config.MaxConns {
		config.MinConns = int32(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		config.MaxConnLifetime = opts.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	timeout := opts.OpTimeout
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}

	return &PostgresStore{pool: pool, opTimeout: timeout}, nil
}

// EnsureSchema creates the users table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return unavailable("create users table", err)
		}
	}
	return nil
}

// Create inserts a user; id and created_at come back from the database.
func (s *PostgresStore) Create(ctx context.Context, name, email string) (*model.User, error) {
	ctx, cancel, err := mutationContext(ctx, s.opTimeout)
	if err != nil {
		return nil, fmt.Errorf("create user not started: %w", err)
	}
	defer cancel()

	user := &model.User{Name: name, Email: email}
	err = s.pool.QueryRow(ctx, pgInsertUser, name, email).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, ErrEmailExists
		case isValueTooLong(err):
			return nil, fmt.Errorf("create user: %w: %w", ErrValueTooLong, err)
		}
		return nil, unavailable("create user", err)
	}
	user.CreatedAt = storeTime(user.CreatedAt)

	return user, nil
}

// List returns every user in id order.
func (s *PostgresStore) List(ctx context.Context) ([]*model.User, error) {
	ctx, cancel := readContext(ctx, s.opTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, pgListUsers)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0)
	for rows.Next() {
		user, err := scanPgUser(rows)
		if err != nil {
			return nil, unavailable("scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list users", err)
	}

	return users, nil
}

// GetByID returns the user with the given id.
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	ctx, cancel := readContext(ctx, s.opTimeout)
	defer cancel()

	user, err := scanPgUser(s.pool.QueryRow(ctx, pgGetUser, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable("get user by ID", err)
	}

	return user, nil
}

// Delete hard-deletes the user with the given id.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	ctx, cancel, err := mutationContext(ctx, s.opTimeout)
	if err != nil {
		return fmt.Errorf("delete user not started: %w", err)
	}
	defer cancel()

	tag, err := s.pool.Exec(ctx, pgDeleteUser, id)
	if err != nil {
		return unavailable("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPgUser(row pgx.Row) (*model.User, error) {
	var user model.User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.CreatedAt = storeTime(user.CreatedAt)
	return &user, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isValueTooLong(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgStringDataTooLong || pgErr.Code == pgProgramLimitExceeded
}

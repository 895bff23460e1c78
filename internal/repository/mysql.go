package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/apiproject/userapi/internal/model"
)

// MySQL server error numbers.
const (
	mysqlDuplicateEntry = 1062 // ER_DUP_ENTRY
	mysqlDataTooLong    = 1406 // ER_DATA_TOO_LONG
)

const (
	mysqlSchema = `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name TEXT NOT NULL,
			email VARCHAR(320) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			UNIQUE KEY users_email_key (email),
			KEY users_name_idx (name(191))
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`
	mysqlInsertUser = `INSERT INTO users (name, email, created_at) VALUES (?, ?, ?)`
	mysqlListUsers  = `SELECT id, name, email, created_at FROM users ORDER BY id`
	mysqlGetUser    = `SELECT id, name, email, created_at FROM users WHERE id = ?`
	mysqlDeleteUser = `DELETE FROM users WHERE id = ?`
)

// MySQLStore implements Store on database/sql with the MySQL driver.
type MySQLStore struct {
	db        *sql.DB
	opTimeout time.Duration
	now       func() time.Time
}

// NewMySQL wraps an existing connection pool.
func NewMySQL(db *sql.DB, opTimeout time.Duration) *MySQLStore {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	return &MySQLStore{db: db, opTimeout: opTimeout, now: time.Now}
}

// OpenMySQL opens a pool for opts.DSN and pings it.
func OpenMySQL(ctx context.Context, opts Options) (*MySQLStore, error) {
	db, err := sql.Open("mysql", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	return NewMySQL(db, opts.OpTimeout), nil
}

// EnsureSchema creates the users table if it does not exist.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, mysqlSchema); err != nil {
		return unavailable("create users table", err)
	}
	return nil
}

// Create inserts a user. The unique key on email makes the duplicate check
// and the insert one atomic statement.
func (s *MySQLStore) Create(ctx context.Context, name, email string) (*model.User, error) {
	ctx, cancel, err := mutationContext(ctx, s.opTimeout)
	if err != nil {
		return nil, fmt.Errorf("create user not started: %w", err)
	}
	defer cancel()

	user := &model.User{
		Name:      name,
		Email:     email,
		CreatedAt: storeTime(s.now()),
	}

	res, err := s.db.ExecContext(ctx, mysqlInsertUser, user.Name, user.Email, user.CreatedAt)
	if err != nil {
		switch {
		case isMySQLDuplicate(err):
			return nil, ErrEmailExists
		case isMySQLDataTooLong(err):
			return nil, fmt.Errorf("create user: %w: %w", ErrValueTooLong, err)
		}
		return nil, unavailable("create user", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, unavailable("read inserted user id", err)
	}
	user.ID = id

	return user, nil
}

// List returns every user in id order.
func (s *MySQLStore) List(ctx context.Context) ([]*model.User, error) {
	ctx, cancel := readContext(ctx, s.opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, mysqlListUsers)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0)
	for rows.Next() {
		user, err := scanSQLUser(rows)
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
func (s *MySQLStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	ctx, cancel := readContext(ctx, s.opTimeout)
	defer cancel()

	user, err := scanSQLUser(s.db.QueryRowContext(ctx, mysqlGetUser, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable("get user by ID", err)
	}

	return user, nil
}

// Delete hard-deletes the user with the given id.
func (s *MySQLStore) Delete(ctx context.Context, id int64) error {
	ctx, cancel, err := mutationContext(ctx, s.opTimeout)
	if err != nil {
		return fmt.Errorf("delete user not started: %w", err)
	}
	defer cancel()

	res, err := s.db.ExecContext(ctx, mysqlDeleteUser, id)
	if err != nil {
		return unavailable("delete user", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable("read deleted rows", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLUser(row rowScanner) (*model.User, error) {
	var user model.User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func isMySQLDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

func isMySQLDataTooLong(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDataTooLong
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/foodbridge/foodbridge/pkg/models"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection. One DB is opened at startup and shared by
// every service; there is no per-request connection state.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database and runs migrations.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer, many readers.
	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they do not exist.
func migrate(conn *sql.DB) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS profiles (
		id         TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		full_name  TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT '',
		location   TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_roles (
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role       TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE(user_id, role)
	);

	CREATE INDEX IF NOT EXISTS idx_user_roles_user_id ON user_roles(user_id);

	CREATE TABLE IF NOT EXISTS donations (
		id          TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		food_type   TEXT NOT NULL,
		quantity    TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location    TEXT NOT NULL,
		expiry_date DATETIME,
		image_url   TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'available',
		created_at  DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_donations_status ON donations(status);
	CREATE INDEX IF NOT EXISTS idx_donations_owner_id ON donations(owner_id);
	CREATE INDEX IF NOT EXISTS idx_donations_created_at ON donations(created_at);
	`
	_, err := conn.Exec(ddl)
	return err
}

// userColumns is the SELECT column list for user queries.
const userColumns = `id, email, password_hash, created_at, updated_at`

// scanUser scans a row into a User model.
func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// --- User operations ---

// CreateUser inserts a new user.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (id, email, password_hash, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, q, u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	return err
}

// GetUserByEmail looks up a user by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(db.conn.QueryRowContext(ctx, q, email))
}

// GetUserByID looks up a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(db.conn.QueryRowContext(ctx, q, id))
}

// ListUserIDs returns the IDs of all registered users, oldest first.
// Used by the weekly digest trigger.
func (db *DB) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Profile operations ---

// CreateProfile inserts a profile for a user.
func (db *DB) CreateProfile(ctx context.Context, p *models.Profile) error {
	const q = `INSERT INTO profiles (id, full_name, phone, location, created_at)
	           VALUES (?, ?, ?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, q, p.ID, p.FullName, p.Phone, p.Location, p.CreatedAt)
	return err
}

// GetProfile looks up a profile by user ID.
func (db *DB) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const q = `SELECT id, full_name, phone, location, created_at FROM profiles WHERE id = ?`
	p := &models.Profile{}
	err := db.conn.QueryRowContext(ctx, q, userID).Scan(&p.ID, &p.FullName, &p.Phone, &p.Location, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// --- Role operations ---

// AddRole grants a role to a user. Granting a role the user already holds
// is a no-op: the assignment table has a UNIQUE(user_id, role) constraint
// and the insert ignores conflicts.
func (db *DB) AddRole(ctx context.Context, userID, role string) error {
	const q = `INSERT OR IGNORE INTO user_roles (user_id, role, created_at) VALUES (?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, q, userID, role, time.Now())
	return err
}

// HasRole reports whether at least one assignment row exists for the user
// and role.
func (db *DB) HasRole(ctx context.Context, userID, role string) (bool, error) {
	const q = `SELECT COUNT(*) FROM user_roles WHERE user_id = ? AND role = ?`
	var n int
	if err := db.conn.QueryRowContext(ctx, q, userID, role).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// OAuthCredentials is the downstream calendar's OAuth token triple.
type OAuthCredentials struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}

// User is the reconciler's view of a user (spec §3). The four
// capability flags gate whether the reconciler may run at all; see
// Capabilities.AllSet.
type User struct {
	ID    uuid.UUID
	Email string

	PortalUsername   string
	PortalPasswordCT string // encrypted ciphertext, never plaintext

	OAuth OAuthCredentials

	DownstreamCalendarID string

	EmailVerified           bool
	PortalCredentialsSet    bool
	DownstreamConnected     bool
	Active                  bool

	LastSync *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanSync reports whether all four capability flags required by spec
// §3's invariant are set.
func (u *User) CanSync() bool {
	return u.EmailVerified && u.PortalCredentialsSet && u.DownstreamConnected && u.Active
}

// UserStore provides PostgreSQL-backed user storage.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `
	id, email, portal_username, portal_password_ciphertext,
	oauth_access_token, oauth_refresh_token, oauth_token_type, oauth_expiry,
	downstream_calendar_id, email_verified, portal_credentials_set,
	downstream_connected, active, last_sync, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.PortalUsername, &u.PortalPasswordCT,
		&u.OAuth.AccessToken, &u.OAuth.RefreshToken, &u.OAuth.TokenType, &u.OAuth.Expiry,
		&u.DownstreamCalendarID, &u.EmailVerified, &u.PortalCredentialsSet,
		&u.DownstreamConnected, &u.Active, &u.LastSync, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// GetByID retrieves a user by id.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ListEligibleForSync returns every user whose capability flags permit
// a sync to run, for the periodic all-user enqueue task (spec §6).
func (s *UserStore) ListEligibleForSync(ctx context.Context) ([]*User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email_verified AND portal_credentials_set AND downstream_connected AND active
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateOAuthCredentials persists a refreshed token triple.
func (s *UserStore) UpdateOAuthCredentials(ctx context.Context, userID uuid.UUID, creds OAuthCredentials) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET oauth_access_token = $2, oauth_refresh_token = $3,
			oauth_token_type = $4, oauth_expiry = $5, updated_at = now()
		WHERE id = $1
	`, userID, creds.AccessToken, creds.RefreshToken, creds.TokenType, creds.Expiry)
	return err
}

// UpdateDownstreamCalendarID persists the resolved sync calendar id
// (spec §4.8 step 6: "if the user's stored calendar id differs from
// the result, update the user row").
func (s *UserStore) UpdateDownstreamCalendarID(ctx context.Context, userID uuid.UUID, calendarID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET downstream_calendar_id = $2, updated_at = now() WHERE id = $1
	`, userID, calendarID)
	return err
}

// UpdateLastSync stamps the user's last successful sync time.
func (s *UserStore) UpdateLastSync(ctx context.Context, userID uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET last_sync = $2, updated_at = now() WHERE id = $1
	`, userID, at)
	return err
}

// UpdatePortalCredentials stores a new encrypted portal password and
// marks PortalCredentialsSet.
func (s *UserStore) UpdatePortalCredentials(ctx context.Context, userID uuid.UUID, username, ciphertext string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET portal_username = $2, portal_password_ciphertext = $3,
			portal_credentials_set = true, updated_at = now()
		WHERE id = $1
	`, userID, username, ciphertext)
	return err
}

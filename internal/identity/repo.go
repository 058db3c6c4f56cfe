package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound   = errors.New("identity: user not found")
	ErrEmailTaken = errors.New("identity: email already registered")
)

type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

type repo struct {
	db DB
}

func NewRepository(db DB) Repository { return &repo{db: db} }

func (r *repo) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.db.Exec(ctx, `
		INSERT INTO users(id, email, password_hash, name, role)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (r *repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.get(ctx, `
		SELECT id, email, password_hash, COALESCE(name, ''), role, created_at
		FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *repo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.get(ctx, `
		SELECT id, email, password_hash, COALESCE(name, ''), role, created_at
		FROM users WHERE id = $1`, id)
}

func (r *repo) get(ctx context.Context, sql string, arg any) (*User, error) {
	var u User
	err := r.db.QueryRow(ctx, sql, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

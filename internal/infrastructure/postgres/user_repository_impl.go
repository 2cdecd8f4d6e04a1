package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
)

const (
	uniqueViolation    = "23505"
	emailConstraint    = "users_email_key"
	usernameConstraint = "users_username_key"
)

const userColumns = `id, email, username, password_hash, role, created_at, updated_at`

// DBTX is the subset of *sql.DB used by the repository.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, username, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.Username, u.PasswordHash, string(u.Role))

	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapWriteError(err, "create user")
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, "id", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.findOne(ctx, "username", username)
}

// findOne looks a user up by one of the unique columns; column is never user input.
func (r *UserRepository) findOne(ctx context.Context, column, value string) (*entity.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE `+column+` = $1
	`, value)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find user by %s", column)
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	if _, err := uuid.Parse(u.ID); err != nil {
		return repository.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET email = $1, username = $2, role = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at
	`, u.Email, u.Username, string(u.Role), u.ID)

	if err := row.Scan(&u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return mapWriteError(err, "update user")
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete user")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete user")
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	defer func() { _ = rows.Close() }()

	users := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*entity.User, error) {
	u := &entity.User{}
	var role string
	if err := s.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = entity.Role(role)
	return u, nil
}

// mapWriteError turns unique violations into the repository's conflict sentinels.
func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case emailConstraint:
			return repository.ErrEmailTaken
		case usernameConstraint:
			return repository.ErrUsernameTaken
		}
	}
	return errors.Wrap(err, op)
}

var _ repository.UserRepository = (*UserRepository)(nil)

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	vo "github.com/oksasatya/go-ddd-user-service/internal/domain/valueobject"
)

const (
	uniqueViolationCode = "23505"
	emailConstraint     = "users_email_key"
)

const userColumns = `id, email, name, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByID(ctx context.Context, id vo.UserID) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.UUID())
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("FindByID: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email vo.Email) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email.String())
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("FindByEmail: %w", err)
	}
	return u, nil
}

// Save upserts on id. The unique index on email makes the uniqueness check part of the
// same statement; a violation is reported as repository.ErrEmailTaken.
func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
	`, u.ID().UUID(), u.Email().String(), u.Name(), u.CreatedAt(), u.UpdatedAt())
	if err != nil {
		if isEmailViolation(err) {
			return repository.ErrEmailTaken
		}
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id vo.UserID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id.UUID()); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var (
		id                   uuid.UUID
		email, name          string
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &email, &name, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e, err := vo.NewEmail(email)
	if err != nil {
		return nil, fmt.Errorf("stored email for %s: %w", id, err)
	}
	return entity.RestoreUser(vo.UserIDFromUUID(id), e, name, createdAt.UTC(), updatedAt.UTC())
}

func isEmailViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == emailConstraint
}

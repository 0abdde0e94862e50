package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-user-accounts/internal/types"
)

const uniqueViolationCode = "23505"

var _ UserRepo = (*PostgresUserRepo)(nil)

// PGXQuerier is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type PGXQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepo defines the contract for user data persistence.
type UserRepo interface {
	// GetUserByID retrieves a user by their unique ID.
	// Returns types.ErrNotFound if no such user exists.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)

	// GetUserByEmail retrieves a user by exact email match.
	// Returns types.ErrNotFound if no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*types.UserProfile, error)

	// Insert creates a new active user for the given email. The users table
	// unique constraint is the authority on email uniqueness; a violation is
	// returned as types.ErrConflict.
	Insert(ctx context.Context, email string) (*types.UserProfile, error)

	// UpdateProfile applies the non-nil fields of params and refreshes
	// updated_at, returning the updated row. Returns types.ErrNotFound if
	// the user doesn't exist.
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error)

	// SoftDelete marks the user deleted: sets deleted_at, clears is_active
	// and refreshes updated_at. A repeated delete overwrites the timestamps.
	SoftDelete(ctx context.Context, userID uuid.UUID) error
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool PGXQuerier
}

func NewPostgresUserRepo(pgpool PGXQuerier, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = "id, email, is_active, created_at, updated_at, deleted_at"

func scanUser(row pgx.Row) (*types.UserProfile, error) {
	var u types.UserProfile
	err := row.Scan(&u.ID, &u.Email, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("database error scanning user: %w", err)
	}
	return &u, nil
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	user, err := scanUser(r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", userID))
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB SELECT failed")
		}
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	user, err := scanUser(r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB SELECT failed")
		}
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepo) Insert(ctx context.Context, email string) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "Insert", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Insert"))

	user, err := scanUser(r.pgpool.QueryRow(ctx,
		`INSERT INTO users (email) VALUES ($1) RETURNING `+userColumns, email))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			l.WarnContext(ctx, "Duplicate email on insert")
			span.SetStatus(codes.Error, "unique constraint violation")
			return nil, fmt.Errorf("%w: email already registered", types.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error inserting user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID.String()))

	// Build the SET clause from the fields actually present in the patch.
	var setClauses []string
	var args []interface{}
	argID := 1

	if params.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argID))
		args = append(args, *params.Email)
		argID++
		span.SetAttributes(attribute.Bool("update.email", true))
	}
	if params.IsActive != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_active = $%d", argID))
		args = append(args, *params.IsActive)
		argID++
		span.SetAttributes(attribute.Bool("update.is_active", true))
	}

	// Nothing to change: return the current row untouched.
	if len(setClauses) == 0 {
		l.DebugContext(ctx, "UpdateProfile called with no fields to update")
		return r.GetUserByID(ctx, userID)
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argID))
	args = append(args, time.Now())
	argID++

	args = append(args, userID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argID, userColumns)

	user, err := scanUser(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			l.WarnContext(ctx, "Duplicate email on profile update")
			span.SetStatus(codes.Error, "unique constraint violation")
			return nil, fmt.Errorf("%w: email already registered", types.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to execute update profile query", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("database error updating profile: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) SoftDelete(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "SoftDelete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SoftDelete"), slog.String("userID", userID.String()))

	now := time.Now()
	tag, err := r.pgpool.Exec(ctx,
		"UPDATE users SET deleted_at = $1, is_active = FALSE, updated_at = $1 WHERE id = $2",
		now, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to soft delete user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	l.InfoContext(ctx, "User soft deleted")
	return nil
}

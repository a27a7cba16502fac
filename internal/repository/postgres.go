package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dharsanguruparan/filevault/internal/common"
	"github.com/dharsanguruparan/filevault/internal/model"
)

const uniqueViolation = "23505"

// pgxPool is the subset of *pgxpool.Pool the store needs.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore wraps all SQL used by the API and the worker.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgresStore constructs a store over an open pool. The schema is
// managed by database.Migrate.
func NewPostgresStore(pool pgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (r *PostgresStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresStore) Close(context.Context) error {
	r.pool.Close()
	return nil
}

func (r *PostgresStore) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = model.NewID()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password, created_at)
		VALUES ($1, $2, $3, now())
	`, user.ID, user.Email, user.Password)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, password FROM users WHERE email=$1`, email)
	return scanUser(row)
}

func (r *PostgresStore) UserByID(ctx context.Context, id string) (*model.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, password FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func (r *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM users`)
}

func (r *PostgresStore) CreateFile(ctx context.Context, file *model.File) error {
	if file.ID == "" {
		file.ID = model.NewID()
	}
	var localPath *string
	if file.LocalPath != "" {
		localPath = &file.LocalPath
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO files (id, user_id, name, type, is_public, parent_id, local_path, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
	`, file.ID, file.UserID, file.Name, string(file.Type), file.IsPublic, file.Parent.StorageValue(), localPath)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

const fileColumns = `id, user_id, name, type, is_public, parent_id, COALESCE(local_path, '')`

func (r *PostgresStore) FileByID(ctx context.Context, id string) (*model.File, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id=$1`, id)
	return scanFile(row)
}

func (r *PostgresStore) FileByOwner(ctx context.Context, id, userID string) (*model.File, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id=$1 AND user_id=$2`, id, userID)
	return scanFile(row)
}

func (r *PostgresStore) ListFiles(ctx context.Context, userID string, parent model.Parent, skip, limit int) ([]*model.File, error) {
	if skip < 0 {
		return []*model.File{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+fileColumns+`
		FROM files
		WHERE user_id=$1 AND parent_id=$2
		ORDER BY id ASC
		OFFSET $3 LIMIT $4
	`, userID, parent.StorageValue(), skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	out := make([]*model.File, 0, limit)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return out, nil
}

func (r *PostgresStore) SetPublic(ctx context.Context, id, userID string, public bool) (*model.File, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE files SET is_public=$1
		WHERE id=$2 AND user_id=$3
		RETURNING `+fileColumns, public, id, userID)
	return scanFile(row)
}

func (r *PostgresStore) CountFiles(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM files`)
}

func (r *PostgresStore) count(ctx context.Context, stmt string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.Password); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func scanFile(row pgx.Row) (*model.File, error) {
	var (
		f        model.File
		fileType string
		parentID string
	)
	if err := row.Scan(&f.ID, &f.UserID, &f.Name, &fileType, &f.IsPublic, &parentID, &f.LocalPath); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("select file: %w", err)
	}
	f.Type = model.FileType(fileType)
	f.Parent = model.Folder(parentID)
	return &f, nil
}

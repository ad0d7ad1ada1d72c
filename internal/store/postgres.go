package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spigell/gigboard/internal/presence"
)

const (
	updateOnlineSQL = `UPDATE profiles SET is_online = $2, last_seen = now() WHERE id = $1`
	selectOnlineSQL = `SELECT id::text, coalesce(is_online, false) FROM profiles`
)

// DB is the subset of *pgxpool.Pool used by Postgres.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres writes presence straight into the marketplace database.
type Postgres struct {
	db DB
}

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) WriteOnlineFlag(ctx context.Context, userID string, online bool) error {
	_, err := s.db.Exec(ctx, updateOnlineSQL, userID, online)
	return presence.WriteError(userID, err)
}

func (s *Postgres) ReadAllOnlineFlags(ctx context.Context) ([]presence.Flag, error) {
	rows, err := s.db.Query(ctx, selectOnlineSQL)
	if err != nil {
		return nil, presence.ReadError(err)
	}
	defer rows.Close()

	var flags []presence.Flag
	for rows.Next() {
		var f presence.Flag
		if err := rows.Scan(&f.UserID, &f.Online); err != nil {
			return nil, presence.ReadError(fmt.Errorf("scan profile row: %w", err))
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, presence.ReadError(err)
	}

	return sortFlags(flags), nil
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spigell/gigboard/internal/backend"
	"github.com/spigell/gigboard/internal/presence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnavailable = errors.New("service unavailable")

type fakeBackend struct {
	flags  []backend.OnlineFlag
	err    error
	writes map[string]bool
}

func (b *fakeBackend) SetOnline(_ context.Context, userID string, online bool) error {
	if b.err != nil {
		return b.err
	}
	if b.writes == nil {
		b.writes = make(map[string]bool)
	}
	b.writes[userID] = online
	return nil
}

func (b *fakeBackend) OnlineFlags(context.Context) ([]backend.OnlineFlag, error) {
	return b.flags, b.err
}

func TestRESTStore(t *testing.T) {
	api := &fakeBackend{flags: []backend.OnlineFlag{
		{UserID: "b", Online: false},
		{UserID: "", Online: true},
		{UserID: "a", Online: true},
	}}
	s := NewREST(api)

	require.NoError(t, s.WriteOnlineFlag(context.Background(), "a", true))
	assert.Equal(t, map[string]bool{"a": true}, api.writes)

	flags, err := s.ReadAllOnlineFlags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []presence.Flag{{UserID: "a", Online: true}, {UserID: "b"}}, flags)
}

func TestRESTStoreWrapsErrors(t *testing.T) {
	s := NewREST(&fakeBackend{err: errUnavailable})

	err := s.WriteOnlineFlag(context.Background(), "a", false)
	var storeErr *presence.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, presence.OpWrite, storeErr.Op)
	assert.Equal(t, "a", storeErr.UserID)
	assert.ErrorIs(t, err, errUnavailable)

	_, err = s.ReadAllOnlineFlags(context.Background())
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, presence.OpRead, storeErr.Op)
}

func TestRedisKeys(t *testing.T) {
	assert.Equal(t, "gigboard:presence:lastseen:u1", lastSeenKey("u1"))
	assert.Equal(t, "1", flagValue(true))
	assert.Equal(t, "0", flagValue(false))
}

func TestParseFlagHash(t *testing.T) {
	flags := parseFlagHash(map[string]string{"c": "0", "a": "1", "b": "true"})

	assert.Equal(t, []presence.Flag{
		{UserID: "a", Online: true},
		{UserID: "b", Online: false},
		{UserID: "c", Online: false},
	}, flags)
}

func TestNewRedisClientErrors(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "http://not-redis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.ParseURL")

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err = NewRedisClient(ctx, "redis://127.0.0.1:1/0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

type fakeRows struct {
	rows    [][]any
	idx     int
	scanErr error
	err     error
	closed  bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.idx-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.rows[r.idx-1]
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*bool) = row[1].(bool)
	return nil
}

type fakeDB struct {
	execSQL  string
	execArgs []any
	execErr  error
	rows     *fakeRows
	queryErr error
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execSQL = sql
	db.execArgs = args
	return pgconn.NewCommandTag("UPDATE 1"), db.execErr
}

func (db *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	if db.queryErr != nil {
		return nil, db.queryErr
	}
	return db.rows, nil
}

func TestPostgresStore(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{rows: [][]any{{"w2", false}, {"w1", true}}}}
	s := NewPostgres(db)

	require.NoError(t, s.WriteOnlineFlag(context.Background(), "w1", true))
	assert.Equal(t, updateOnlineSQL, db.execSQL)
	assert.Equal(t, []any{"w1", true}, db.execArgs)

	flags, err := s.ReadAllOnlineFlags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []presence.Flag{{UserID: "w1", Online: true}, {UserID: "w2"}}, flags)
	assert.True(t, db.rows.closed)
}

func TestPostgresStoreErrors(t *testing.T) {
	var storeErr *presence.StoreError

	s := NewPostgres(&fakeDB{execErr: errUnavailable, queryErr: errUnavailable})
	require.ErrorAs(t, s.WriteOnlineFlag(context.Background(), "w1", false), &storeErr)

	_, err := s.ReadAllOnlineFlags(context.Background())
	require.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, errUnavailable)

	s = NewPostgres(&fakeDB{rows: &fakeRows{rows: [][]any{{"w1", true}}, scanErr: errUnavailable}})
	_, err = s.ReadAllOnlineFlags(context.Background())
	assert.ErrorIs(t, err, errUnavailable)

	s = NewPostgres(&fakeDB{rows: &fakeRows{err: errUnavailable}})
	_, err = s.ReadAllOnlineFlags(context.Background())
	assert.ErrorIs(t, err, errUnavailable)
}

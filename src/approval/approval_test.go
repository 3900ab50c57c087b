package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jroots/jroots/src/config"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/telegram"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantIdempotence(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh grant", func(t *testing.T) {
		conn := newFakeGrantDB()
		err := grantInTx(ctx, conn, 1, 42)
		require.NoError(t, err)
		assert.True(t, conn.granted(1, 42))
		assert.Equal(t, 1, conn.commits)
	})

	t.Run("replayed grant succeeds", func(t *testing.T) {
		conn := newFakeGrantDB()
		conn.grants[grantKey{1, 42}] = true

		// A second press of the same Approve button must commit cleanly; a
		// raised unique violation would abort the tx and fail the commit.
		err := grantInTx(ctx, conn, 1, 42)
		require.NoError(t, err)
		assert.True(t, conn.granted(1, 42))
		assert.Equal(t, 1, conn.commits)
	})
}

func TestHandleDecision(t *testing.T) {
	ctx := context.Background()
	bot := newFakeBotAPI(t)
	defer bot.close()

	alice := models.User{
		ID:         7,
		Username:   "alice",
		Email:      "alice@example.com",
		DateJoined: time.Now(),
		IsAdmin:    false,
		Status:     models.UserStatusConfirmed,
	}

	t.Run("approve grants access", func(t *testing.T) {
		conn := newFakeGrantDB()
		conn.users = append(conn.users, alice)

		err := HandleDecision(ctx, conn, &telegram.CallbackQuery{
			ID:   "cb1",
			From: telegram.User{FirstName: "Reviewer"},
			Data: "approve:42:alice@example.com",
		})
		require.NoError(t, err)
		assert.True(t, conn.granted(7, 42))
		assert.Contains(t, bot.answers(), "Access granted.")
	})

	t.Run("duplicate approval still reports success", func(t *testing.T) {
		conn := newFakeGrantDB()
		conn.users = append(conn.users, alice)
		conn.grants[grantKey{7, 42}] = true

		err := HandleDecision(ctx, conn, &telegram.CallbackQuery{
			ID:   "cb2",
			From: telegram.User{FirstName: "Reviewer"},
			Data: "approve:42:alice@example.com",
		})
		require.NoError(t, err)
		assert.True(t, conn.granted(7, 42))
		assert.Contains(t, bot.answers(), "Access granted.")
	})

	t.Run("unknown email leaves no grant and an event", func(t *testing.T) {
		conn := newFakeGrantDB()

		err := HandleDecision(ctx, conn, &telegram.CallbackQuery{
			ID:   "cb3",
			From: telegram.User{FirstName: "Reviewer"},
			Data: "approve:42:ghost@example.com",
		})
		require.NoError(t, err)
		assert.Empty(t, conn.grants)
		require.Len(t, conn.events, 1)
		assert.Contains(t, conn.events[0], "ghost@example.com")
		assert.Contains(t, bot.answers(), "No account found for ghost@example.com.")
	})

	t.Run("malformed token is rejected with no grant", func(t *testing.T) {
		conn := newFakeGrantDB()
		conn.users = append(conn.users, alice)

		err := HandleDecision(ctx, conn, &telegram.CallbackQuery{
			ID:   "cb4",
			From: telegram.User{FirstName: "Reviewer"},
			Data: "approve;42;alice@example.com",
		})
		require.Error(t, err)
		assert.Empty(t, conn.grants)
		assert.Contains(t, bot.answers(), "This decision could not be decoded.")
	})

	t.Run("deny leaves no trace", func(t *testing.T) {
		conn := newFakeGrantDB()
		conn.users = append(conn.users, alice)

		err := HandleDecision(ctx, conn, &telegram.CallbackQuery{
			ID:   "cb5",
			From: telegram.User{FirstName: "Reviewer"},
			Data: "deny:42:alice@example.com",
		})
		require.NoError(t, err)
		assert.Empty(t, conn.grants)
		assert.Empty(t, conn.events)
		assert.Contains(t, bot.answers(), "Request denied.")
	})
}

/*
An in-memory stand-in for the database, close enough to Postgres for the
decision paths: user lookup by email, the grant insert inside a transaction,
and the admin event insert. Crucially it keeps Postgres's transaction-abort
behavior: a statement that raises inside a tx poisons it, and Commit then
reports a rollback. An insert that resolves its conflict server-side never
raises, which is what keeps replayed approvals committable.
*/

type grantKey struct {
	userID  int
	assetID int
}

type fakeGrantDB struct {
	users   []models.User
	grants  map[grantKey]bool
	events  []string
	commits int
}

func newFakeGrantDB() *fakeGrantDB {
	return &fakeGrantDB{grants: map[grantKey]bool{}}
}

func (f *fakeGrantDB) granted(userID int, assetID int) bool {
	return f.grants[grantKey{userID, assetID}]
}

var userColumns = []string{"id", "username", "password", "email", "date_joined", "last_login", "is_admin", "status"}

func (f *fakeGrantDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if !strings.Contains(sql, "FROM jroots_user") {
		return nil, fmt.Errorf("unexpected query: %s", sql)
	}
	rows := &fakeRows{columns: userColumns}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, args[0].(string)) {
			rows.rows = append(rows.rows, []any{
				u.ID, u.Username, u.Password, u.Email, u.DateJoined, u.LastLogin, u.IsAdmin, u.Status,
			})
		}
	}
	return rows, nil
}

func (f *fakeGrantDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not expected on the decision paths")
}

func (f *fakeGrantDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if strings.Contains(sql, "INSERT INTO admin_event") {
		f.events = append(f.events, args[1].(string))
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %s", sql)
}

func (f *fakeGrantDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeGrantTx{db: f, staged: map[grantKey]bool{}}, nil
}

type fakeGrantTx struct {
	db      *fakeGrantDB
	staged  map[grantKey]bool
	aborted bool
	closed  bool
}

func (tx *fakeGrantTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx.closed {
		return pgconn.CommandTag{}, pgx.ErrTxClosed
	}
	if tx.aborted {
		return pgconn.CommandTag{}, errors.New("current transaction is aborted, commands ignored until end of transaction block")
	}
	if !strings.Contains(sql, "INSERT INTO access_grant") {
		return pgconn.CommandTag{}, fmt.Errorf("unexpected exec in tx: %s", sql)
	}

	key := grantKey{args[0].(int), args[1].(int)}
	if tx.db.grants[key] || tx.staged[key] {
		if strings.Contains(sql, "ON CONFLICT") {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		tx.aborted = true
		return pgconn.CommandTag{}, &pgconn.PgError{
			Code:    "23505",
			Message: `duplicate key value violates unique constraint "access_grant_user_id_asset_id_key"`,
		}
	}
	tx.staged[key] = true
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *fakeGrantTx) Commit(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	if tx.aborted {
		return pgx.ErrTxCommitRollback
	}
	for key := range tx.staged {
		tx.db.grants[key] = true
	}
	tx.db.commits++
	return nil
}

func (tx *fakeGrantTx) Rollback(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	return nil
}

func (tx *fakeGrantTx) Begin(ctx context.Context) (pgx.Tx, error) {
	panic("nested transactions not expected")
}

func (tx *fakeGrantTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not expected on the decision paths")
}

func (tx *fakeGrantTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not expected on the decision paths")
}

func (tx *fakeGrantTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not expected on the decision paths")
}

func (tx *fakeGrantTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not expected on the decision paths")
}

func (tx *fakeGrantTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (tx *fakeGrantTx) Prepare(ctx context.Context, name string, sql string) (*pgconn.StatementDescription, error) {
	panic("not expected on the decision paths")
}

func (tx *fakeGrantTx) Conn() *pgx.Conn {
	return nil
}

type fakeRows struct {
	columns []string
	rows    [][]any
	idx     int
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.columns))
	for i, name := range r.columns {
		fds[i].Name = name
	}
	return fds
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx <= len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) == 1 {
		if rs, ok := dest[0].(pgx.RowScanner); ok {
			return rs.ScanRow(r)
		}
	}
	row := r.rows[r.idx-1]
	for i, d := range dest {
		if d == nil || row[i] == nil {
			continue
		}
		dv := reflect.ValueOf(d).Elem()
		v := reflect.ValueOf(row[i])
		if !v.Type().AssignableTo(dv.Type()) {
			v = v.Convert(dv.Type())
		}
		dv.Set(v)
	}
	return nil
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.idx-1], nil
}

// A local Bot API that accepts everything and records the callback answers.
type fakeBotAPI struct {
	srv *httptest.Server

	mu       sync.Mutex
	answered []string

	prevBaseUrl  string
	prevBotToken string
}

func newFakeBotAPI(t *testing.T) *fakeBotAPI {
	bot := &fakeBotAPI{}
	bot.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/answerCallbackQuery") {
			var payload struct {
				Text string `json:"text"`
			}
			json.NewDecoder(r.Body).Decode(&payload)
			bot.mu.Lock()
			bot.answered = append(bot.answered, payload.Text)
			bot.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))

	bot.prevBaseUrl = telegram.BaseUrl
	bot.prevBotToken = config.Config.Telegram.BotToken
	telegram.BaseUrl = bot.srv.URL
	config.Config.Telegram.BotToken = "bot-token-under-test"
	return bot
}

func (b *fakeBotAPI) answers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.answered...)
}

func (b *fakeBotAPI) close() {
	telegram.BaseUrl = b.prevBaseUrl
	config.Config.Telegram.BotToken = b.prevBotToken
	b.srv.Close()
}

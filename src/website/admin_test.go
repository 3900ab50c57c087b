package website

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jroots/jroots/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminSources(t *testing.T) {
	conn := &fakeAdminConn{
		sources: []models.AssetSource{
			{ID: 2, Name: "City Archive", Description: "Scanned municipal collection"},
			{ID: 5, Name: "Field Survey"},
		},
	}

	c := &RequestContext{Conn: conn, ctx: context.Background()}
	res := AdminSources(c)
	require.Empty(t, res.Errors)

	var got []sourceJson
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "City Archive", got[0].Name)
	assert.Equal(t, 5, got[1].ID)
}

func TestAdminEvents(t *testing.T) {
	assetID := 42
	conn := &fakeAdminConn{
		events: []models.AdminEvent{
			{ID: 9, AssetID: &assetID, Message: "An approval could not be applied.", CreatedAt: time.Now()},
			{ID: 4, Message: "Earlier trouble.", CreatedAt: time.Now().Add(-time.Hour), IsResolved: true},
		},
	}

	c := &RequestContext{Conn: conn, ctx: context.Background()}
	res := AdminEvents(c)
	require.Empty(t, res.Errors)

	var got []adminEventJson
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 9, got[0].ID)
	require.NotNil(t, got[0].AssetID)
	assert.Equal(t, 42, *got[0].AssetID)
	assert.True(t, got[1].IsResolved)
}

func TestResolveAdminEvent(t *testing.T) {
	conn := &fakeAdminConn{
		events: []models.AdminEvent{{ID: 9, Message: "An approval could not be applied."}},
	}

	t.Run("resolves an existing event", func(t *testing.T) {
		c := &RequestContext{Conn: conn, ctx: context.Background(), PathParams: map[string]string{"id": "9"}}
		res := ResolveAdminEvent(c)
		assert.NotEqual(t, http.StatusNotFound, res.StatusCode)
		assert.Equal(t, []int{9}, conn.resolved)
	})

	t.Run("404 for a missing event", func(t *testing.T) {
		c := &RequestContext{Conn: conn, ctx: context.Background(), PathParams: map[string]string{"id": "1234"}}
		res := ResolveAdminEvent(c)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}

// Serves canned rows for the admin queries.
type fakeAdminConn struct {
	sources  []models.AssetSource
	events   []models.AdminEvent
	resolved []int
}

func (f *fakeAdminConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	switch {
	case strings.Contains(sql, "FROM asset_source"):
		rows := &cannedRows{columns: []string{"id", "name", "description"}}
		for _, s := range f.sources {
			rows.rows = append(rows.rows, []any{s.ID, s.Name, s.Description})
		}
		return rows, nil
	case strings.Contains(sql, "FROM admin_event"):
		rows := &cannedRows{columns: []string{"id", "asset_id", "message", "created_at", "is_resolved"}}
		for _, e := range f.events {
			rows.rows = append(rows.rows, []any{e.ID, e.AssetID, e.Message, e.CreatedAt, e.IsResolved})
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", sql)
}

func (f *fakeAdminConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not expected by the admin handlers")
}

func (f *fakeAdminConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if !strings.Contains(sql, "UPDATE admin_event") {
		return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %s", sql)
	}
	id := args[0].(int)
	for _, e := range f.events {
		if e.ID == id {
			f.resolved = append(f.resolved, id)
			return pgconn.NewCommandTag("UPDATE 1"), nil
		}
	}
	return pgconn.NewCommandTag("UPDATE 0"), nil
}

func (f *fakeAdminConn) Begin(ctx context.Context) (pgx.Tx, error) {
	panic("not expected by the admin handlers")
}

type cannedRows struct {
	columns []string
	rows    [][]any
	idx     int
}

func (r *cannedRows) Close()                        {}
func (r *cannedRows) Err() error                    { return nil }
func (r *cannedRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *cannedRows) RawValues() [][]byte           { return nil }
func (r *cannedRows) Conn() *pgx.Conn               { return nil }

func (r *cannedRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.columns))
	for i, name := range r.columns {
		fds[i].Name = name
	}
	return fds
}

func (r *cannedRows) Next() bool {
	r.idx++
	return r.idx <= len(r.rows)
}

func (r *cannedRows) Scan(dest ...any) error {
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

func (r *cannedRows) Values() ([]any, error) {
	return r.rows[r.idx-1], nil
}

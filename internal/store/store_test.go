package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/edgraph/pkg/edgraph"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLibSQLStore("file:" + filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newPostgresTestStore(t *testing.T) Store {
	t.Helper()
	url := os.Getenv("EDGRAPH_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("EDGRAPH_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, url)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() {
		_, _ = s.db.Exec(ctx, `DELETE FROM revisions`)
		_ = s.Close()
	})
	return s
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// rev builds a revision whose hash is derived from content.
func rev(graphID, content string, at int) *Revision {
	return &Revision{
		GraphID:   graphID,
		GraphName: "main",
		Hash:      "h-" + content,
		Document:  json.RawMessage(fmt.Sprintf(`{"name":"main","content":%q}`, content)),
		CreatedAt: base.Add(time.Duration(at) * time.Minute),
	}
}

func codeOf(err error) string {
	var e *edgraph.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func TestLibSQLStore(t *testing.T)   { runStoreSuite(t, newTestStore) }
func TestPostgresStore(t *testing.T) { runStoreSuite(t, newPostgresTestStore) }

func runStoreSuite(t *testing.T, newStore func(*testing.T) Store) {
	t.Run("numbers and dedupe", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		g := uuid.NewString()

		first := rev(g, "a", 0)
		require.NoError(t, s.SaveRevision(ctx, first))
		assert.Equal(t, 1, first.Number)
		assert.NotEmpty(t, first.ID)

		same := rev(g, "a", 1)
		require.NoError(t, s.SaveRevision(ctx, same))
		assert.Equal(t, first.ID, same.ID, "identical content reuses the latest revision")
		assert.Equal(t, 1, same.Number)

		second := rev(g, "b", 2)
		require.NoError(t, s.SaveRevision(ctx, second))
		assert.Equal(t, 2, second.Number)

		back := rev(g, "a", 3)
		require.NoError(t, s.SaveRevision(ctx, back))
		assert.Equal(t, 3, back.Number, "only the latest revision is compared")

		other := rev(uuid.NewString(), "a", 4)
		require.NoError(t, s.SaveRevision(ctx, other))
		assert.Equal(t, 1, other.Number, "numbering is per graph")
	})

	t.Run("get and latest", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		g := uuid.NewString()
		require.NoError(t, s.SaveRevision(ctx, rev(g, "a", 0)))
		require.NoError(t, s.SaveRevision(ctx, rev(g, "b", 1)))

		got, err := s.GetRevision(ctx, g, 1)
		require.NoError(t, err)
		assert.Equal(t, "h-a", got.Hash)
		assert.Equal(t, "main", got.GraphName)
		assert.JSONEq(t, `{"name":"main","content":"a"}`, string(got.Document))
		assert.True(t, base.Equal(got.CreatedAt), "created_at round trips: %v", got.CreatedAt)

		latest, err := s.LatestRevision(ctx, g)
		require.NoError(t, err)
		assert.Equal(t, 2, latest.Number)

		_, err = s.GetRevision(ctx, g, 9)
		assert.Equal(t, edgraph.ErrCodeNotFound, codeOf(err))
		_, err = s.LatestRevision(ctx, uuid.NewString())
		assert.Equal(t, edgraph.ErrCodeNotFound, codeOf(err))
	})

	t.Run("list", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		g, h := uuid.NewString(), uuid.NewString()
		for i, c := range []string{"a", "b", "c"} {
			require.NoError(t, s.SaveRevision(ctx, rev(g, c, i)))
		}
		require.NoError(t, s.SaveRevision(ctx, rev(h, "x", 10)))

		revs, err := s.ListRevisions(ctx, RevisionFilter{GraphID: g})
		require.NoError(t, err)
		require.Len(t, revs, 3)
		assert.Equal(t, []int{3, 2, 1}, numbers(revs))

		revs, err = s.ListRevisions(ctx, RevisionFilter{GraphID: g, Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []int{2}, numbers(revs))

		since := base.Add(time.Minute)
		revs, err = s.ListRevisions(ctx, RevisionFilter{GraphID: g, Since: &since})
		require.NoError(t, err)
		assert.Equal(t, []int{3, 2}, numbers(revs))
	})

	t.Run("prune", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		g, h := uuid.NewString(), uuid.NewString()
		for i, c := range []string{"a", "b", "c", "d"} {
			require.NoError(t, s.SaveRevision(ctx, rev(g, c, i)))
		}
		require.NoError(t, s.SaveRevision(ctx, rev(h, "x", 0)))

		n, err := s.PruneRevisions(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		revs, err := s.ListRevisions(ctx, RevisionFilter{GraphID: g})
		require.NoError(t, err)
		assert.Equal(t, []int{4, 3}, numbers(revs))

		_, err = s.LatestRevision(ctx, h)
		assert.NoError(t, err, "graphs under the limit are untouched")

		next := rev(g, "e", 9)
		require.NoError(t, s.SaveRevision(ctx, next))
		assert.Equal(t, 5, next.Number, "numbering continues after pruning")

		_, err = s.PruneRevisions(ctx, 0)
		assert.Equal(t, edgraph.ErrCodeValidation, codeOf(err))
	})

	t.Run("rejects incomplete revisions", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for name, r := range map[string]*Revision{
			"nil":         nil,
			"no graph":    {Hash: "h", Document: json.RawMessage(`{}`)},
			"no hash":     {GraphID: "g", Document: json.RawMessage(`{}`)},
			"no document": {GraphID: "g", Hash: "h"},
		} {
			err := s.SaveRevision(ctx, r)
			assert.Equal(t, edgraph.ErrCodeValidation, codeOf(err), name)
		}
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Migrate(context.Background()))
		require.NoError(t, s.Vacuum(context.Background()))
	})
}

func numbers(revs []*Revision) []int {
	out := make([]int, len(revs))
	for i, r := range revs {
		out[i] = r.Number
	}
	return out
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, DriverLibSQL, "file:"+filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	defer s.Close()

	r := rev("g", "a", 0)
	require.NoError(t, s.SaveRevision(ctx, r), "Open applies migrations")

	_, err = Open(ctx, "mongo", "")
	assert.Equal(t, edgraph.ErrCodeValidation, codeOf(err))
}

func TestLoadMigrations(t *testing.T) {
	for _, dialect := range []string{DriverLibSQL, DriverPostgres} {
		ms, err := loadMigrations(dialect)
		require.NoError(t, err)
		require.NotEmpty(t, ms)
		assert.Equal(t, 1, ms[0].Version)
		assert.Equal(t, "initial_schema", ms[0].Name)
		assert.Len(t, splitStatements(ms[0].SQL), 3)
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- only a comment;\nCREATE TABLE a (x INT);\n\n  ;SELECT 1")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "SELECT 1"}, stmts)
}

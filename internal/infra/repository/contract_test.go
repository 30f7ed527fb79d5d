package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/mediadb"
)

func newDoc(id string, value map[string]any) mediadb.UntypedRecord {
	return mediadb.UntypedRecord{ID: id, Value: value}
}

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, store mediadb.Store) {
	ctx := context.Background()

	t.Run("missing record", func(t *testing.T) {
		_, err := store.GetDoc(ctx, "media/missing")
		assert.ErrorIs(t, err, mediadb.ErrNotFound)
	})

	t.Run("create and read back", func(t *testing.T) {
		doc := newDoc("media/create", map[string]any{"content_url": "http://x/a.mp3"})
		doc.Meta.SetJob("asr", true)

		res, err := store.PutDoc(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, "media/create", res.ID)
		assert.NotEmpty(t, res.Revision)

		got, err := store.GetDoc(ctx, "media/create")
		require.NoError(t, err)
		assert.Equal(t, res.Revision, got.Revision)
		assert.Equal(t, map[string]any{"content_url": "http://x/a.mp3"}, got.Value)
		settings, ok := got.Meta.Job("asr")
		assert.True(t, ok)
		assert.Equal(t, true, settings)
	})

	t.Run("revisions change on every write", func(t *testing.T) {
		doc := newDoc("media/revs", map[string]any{"n": 1})
		first, err := store.PutDoc(ctx, doc)
		require.NoError(t, err)

		second, err := store.PutDoc(ctx, doc)
		require.NoError(t, err)
		assert.NotEqual(t, first.Revision, second.Revision)
	})

	t.Run("matching revision is accepted", func(t *testing.T) {
		res, err := store.PutDoc(ctx, newDoc("media/guarded", map[string]any{"n": 1}))
		require.NoError(t, err)

		doc := newDoc("media/guarded", map[string]any{"n": 2})
		doc.Revision = res.Revision
		res2, err := store.PutDoc(ctx, doc)
		require.NoError(t, err)

		got, err := store.GetDoc(ctx, "media/guarded")
		require.NoError(t, err)
		assert.Equal(t, res2.Revision, got.Revision)
		assert.Equal(t, map[string]any{"n": json.Number("2")}, got.Value)
	})

	t.Run("stale revision conflicts", func(t *testing.T) {
		res, err := store.PutDoc(ctx, newDoc("media/stale", map[string]any{"n": 1}))
		require.NoError(t, err)
		_, err = store.PutDoc(ctx, newDoc("media/stale", map[string]any{"n": 2}))
		require.NoError(t, err)

		doc := newDoc("media/stale", map[string]any{"n": 3})
		doc.Revision = res.Revision
		_, err = store.PutDoc(ctx, doc)
		assert.ErrorIs(t, err, mediadb.ErrConflict)

		got, err := store.GetDoc(ctx, "media/stale")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"n": json.Number("2")}, got.Value)
	})

	t.Run("revision on a missing record conflicts", func(t *testing.T) {
		doc := newDoc("media/ghost", map[string]any{"n": 1})
		doc.Revision = "1-0000000000000000"
		_, err := store.PutDoc(ctx, doc)
		assert.ErrorIs(t, err, mediadb.ErrConflict)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := store.PutDoc(ctx, newDoc("no-namespace", map[string]any{}))
		assert.ErrorIs(t, err, mediadb.ErrInvalidIdentifier)
	})

	t.Run("one guarded writer wins", func(t *testing.T) {
		res, err := store.PutDoc(ctx, newDoc("media/race", map[string]any{"n": 0}))
		require.NoError(t, err)

		const writers = 4
		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				doc := newDoc("media/race", map[string]any{"n": i + 1})
				doc.Revision = res.Revision
				_, errs[i] = store.PutDoc(ctx, doc)
			}()
		}
		wg.Wait()

		var won int
		for _, err := range errs {
			if err == nil {
				won++
				continue
			}
			assert.ErrorIs(t, err, mediadb.ErrConflict)
		}
		assert.Equal(t, 1, won)
	})
}

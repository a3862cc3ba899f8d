package binmeta_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/drpcorg/binmeta"
	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/registry"
	"github.com/drpcorg/binmeta/schema"
	"github.com/drpcorg/binmeta/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedMapper map[string]int32

func (m fixedMapper) TypeID(name string) int32 { return m[name] }

func (m fixedMapper) FieldID(_ int32, name string) int32 { return m[name] }

func newManager(reg registry.Registry) *binmeta.Manager {
	return binmeta.NewManager(reg, binmeta.Options{
		Logger: utils.NewDefaultLogger(slog.LevelError),
	})
}

func TestManagerSessions(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemory()
	m := newManager(reg)

	h, err := m.Handler(ctx, "Person")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, h.Session())
	assert.EqualValues(t, 0, h.Origin().Revision())
	tid := h.Origin().TypeID()
	assert.Equal(t, m.TypeID("Person"), tid)

	require.NoError(t, h.OnFieldWritten(m.FieldID(tid, "name"), "name", schema.TypeString))
	require.NoError(t, h.OnFieldWritten(m.FieldID(tid, "age"), "age", schema.TypeInt))
	snap, err := m.Submit(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
	assert.EqualValues(t, 1, snap.Revision())

	// the next session of the type starts from what was published
	h2, err := m.Handler(ctx, "Person")
	require.NoError(t, err)
	assert.Same(t, snap, h2.Origin())
	require.NoError(t, h2.OnFieldWritten(m.FieldID(tid, "name"), "name", schema.TypeString))
	again, err := m.Submit(ctx, h2)
	require.NoError(t, err)
	assert.Same(t, snap, again, "no discovery, no publish")

	cur, err := m.Snapshot(ctx, "person")
	require.NoError(t, err)
	assert.Same(t, snap, cur)
}

func TestManagerEmptySessionNotPublished(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemory()
	m := newManager(reg)
	h, err := m.Handler(ctx, "Nothing")
	require.NoError(t, err)
	_, err = m.Submit(ctx, h)
	require.NoError(t, err)
	_, err = reg.Fetch(ctx, m.TypeID("Nothing"))
	assert.ErrorIs(t, err, binmeta_errors.ErrTypeUnknown)
}

func TestManagerTypeIDCollision(t *testing.T) {
	ctx := context.Background()
	m := binmeta.NewManager(registry.NewMemory(), binmeta.Options{
		Logger: utils.NewDefaultLogger(slog.LevelError),
		Mapper: fixedMapper{"Cat": 7, "Dog": 7, "name": 1},
	})
	h, err := m.Handler(ctx, "Cat")
	require.NoError(t, err)
	require.NoError(t, h.OnFieldWritten(1, "name", schema.TypeString))
	_, err = m.Submit(ctx, h)
	require.NoError(t, err)

	_, err = m.Handler(ctx, "Dog")
	assert.ErrorIs(t, err, binmeta_errors.ErrTypeIDCollision)
}

func TestManagerConcurrentDiscovery(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemory()
	m := newManager(reg)
	const writers = 16

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := m.Handler(ctx, "Event")
			if !assert.NoError(t, err) {
				return
			}
			tid := h.Origin().TypeID()
			common := m.FieldID(tid, "ts")
			assert.NoError(t, h.OnFieldWritten(common, "ts", schema.TypeTimestamp))
			own := fmt.Sprintf("attr%d", i)
			assert.NoError(t, h.OnFieldWritten(m.FieldID(tid, own), own, schema.TypeString))
			_, err = m.Submit(ctx, h)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	final, err := m.Snapshot(ctx, "Event")
	require.NoError(t, err)
	assert.Equal(t, writers+1, final.Len())
	_, ok := final.FindName("ts")
	assert.True(t, ok)
}

func TestManagerConflictingPublish(t *testing.T) {
	ctx := context.Background()
	m := newManager(registry.NewMemory())
	tid := m.TypeID("Doc")
	fid := m.FieldID(tid, "body")

	h1, err := m.Handler(ctx, "Doc")
	require.NoError(t, err)
	h2, err := m.Handler(ctx, "Doc")
	require.NoError(t, err)
	require.NoError(t, h1.OnFieldWritten(fid, "body", schema.TypeString))
	require.NoError(t, h2.OnFieldWritten(fid, "body", schema.TypeBinary))

	_, err = m.Submit(ctx, h1)
	require.NoError(t, err)
	_, err = m.Submit(ctx, h2)
	assert.ErrorIs(t, err, binmeta_errors.ErrSchemaConflict)
}

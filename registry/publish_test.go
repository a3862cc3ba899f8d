package registry_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/registry"
	"github.com/drpcorg/binmeta/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, origin *schema.Snapshot, fields ...schema.Field) registry.Update {
	return registry.Update{Origin: origin, Updated: merged(t, origin, fields...), Added: fields}
}

func TestPublishNoUpdate(t *testing.T) {
	origin := schema.Empty(5, "T")
	got, err := registry.Publish(context.Background(), registry.NewMemory(),
		registry.Update{Origin: origin, Updated: origin}, registry.PublishOptions{})
	require.NoError(t, err)
	assert.Same(t, origin, got)
}

// testPublishUnion runs two sessions from one origin, both orders.
func testPublishUnion(t *testing.T, newRegistry func() registry.Registry) {
	ctx := context.Background()
	for _, order := range [][2]int{{0, 1}, {1, 0}} {
		reg := newRegistry()
		base := merged(t, schema.Empty(100, "Point"), fieldX)
		_, ok, err := reg.TryPublish(ctx, schema.Empty(100, "Point"), base)
		require.NoError(t, err)
		require.True(t, ok)

		updates := []registry.Update{update(t, base, fieldY), update(t, base, fieldZ)}
		for _, i := range order {
			_, err := registry.Publish(ctx, reg, updates[i], registry.PublishOptions{})
			require.NoError(t, err)
		}

		final, err := reg.Fetch(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, 3, final.Len(), "order %v", order)
		for _, f := range []schema.Field{fieldX, fieldY, fieldZ} {
			got, ok := final.Lookup(f.ID)
			assert.True(t, ok)
			assert.Equal(t, f, got)
		}
		assert.EqualValues(t, 3, final.Revision())
	}
}

func TestPublishUnionMemory(t *testing.T) {
	testPublishUnion(t, func() registry.Registry { return registry.NewMemory() })
}

func TestPublishAlreadyCovered(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemory()
	origin := schema.Empty(9, "T")

	_, err := registry.Publish(ctx, reg, update(t, origin, fieldX, fieldY), registry.PublishOptions{})
	require.NoError(t, err)
	published, err := reg.Fetch(ctx, 9)
	require.NoError(t, err)

	got, err := registry.Publish(ctx, reg, update(t, origin, fieldY), registry.PublishOptions{})
	require.NoError(t, err)
	assert.Same(t, published, got, "nothing new, nothing written")
}

func TestPublishConcurrentConflict(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemory()
	origin := schema.Empty(11, "T")
	before := testutil.ToFloat64(registry.PublishConflicts)

	_, err := registry.Publish(ctx, reg, update(t, origin, fieldY), registry.PublishOptions{})
	require.NoError(t, err)

	clash := schema.Field{ID: fieldY.ID, Name: fieldY.Name, Type: schema.TypeBool}
	_, err = registry.Publish(ctx, reg, update(t, origin, clash), registry.PublishOptions{})
	assert.ErrorIs(t, err, binmeta_errors.ErrSchemaConflict)
	assert.Equal(t, before+1, testutil.ToFloat64(registry.PublishConflicts))

	cur, err := reg.Fetch(ctx, 11)
	require.NoError(t, err)
	f, _ := cur.Lookup(fieldY.ID)
	assert.Equal(t, schema.TypeString, f.Type)
}

const manySessions = 64

// testPublishManySessions races sessions that each add one field to the
// same origin.
func testPublishManySessions(t *testing.T, reg registry.Registry) {
	ctx := context.Background()
	origin := schema.Empty(42, "Wide")

	var wg sync.WaitGroup
	errs := make(chan error, manySessions)
	for i := 0; i < manySessions; i++ {
		f := schema.Field{ID: int32(i + 1), Name: fmt.Sprintf("f%d", i), Type: schema.TypeLong}
		upd := update(t, origin, f)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.Publish(ctx, reg, upd, registry.PublishOptions{MaxBackoff: time.Millisecond})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	final, err := reg.Fetch(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, manySessions, final.Len())
	assert.EqualValues(t, manySessions, final.Revision())
}

func TestPublishManySessions(t *testing.T) {
	testPublishManySessions(t, registry.NewMemory())
}

type staleForever struct {
	registry.Registry
	current *schema.Snapshot
}

func (s staleForever) TryPublish(context.Context, *schema.Snapshot, *schema.Snapshot) (*schema.Snapshot, bool, error) {
	return s.current, false, nil
}

func TestPublishCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	origin := schema.Empty(3, "T")
	reg := staleForever{current: merged(t, origin, fieldX)}
	_, err := registry.Publish(ctx, reg, update(t, origin, fieldY), registry.PublishOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

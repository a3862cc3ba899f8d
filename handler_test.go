package binmeta_test

import (
	"context"
	"testing"

	"github.com/drpcorg/binmeta"
	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/registry"
	"github.com/drpcorg/binmeta/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func origin(t *testing.T) *schema.Snapshot {
	s, err := schema.NewSnapshot(100, "Point", 1,
		schema.Field{ID: 1, Name: "x", Type: schema.TypeInt},
		schema.Field{ID: 5, Name: "a", Type: schema.TypeInt},
	)
	require.NoError(t, err)
	return s
}

func TestHandlerKnownFields(t *testing.T) {
	o := origin(t)
	h := binmeta.NewTypeHandler(o)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.OnFieldWritten(1, "x", schema.TypeInt))
		require.NoError(t, h.OnFieldWritten(5, "a", schema.TypeInt))
		assert.False(t, h.HasUpdate())
	}
	assert.Same(t, o, h.Updated())
	assert.Empty(t, h.Added())

	upd := h.Update()
	assert.Same(t, o, upd.Origin)
	assert.Same(t, o, upd.Updated)
}

func TestHandlerNewField(t *testing.T) {
	o := origin(t)
	h := binmeta.NewTypeHandler(o)
	before := testutil.ToFloat64(binmeta.FieldsDiscovered)

	require.NoError(t, h.OnFieldWritten(1, "x", schema.TypeInt))
	assert.False(t, h.HasUpdate())
	require.NoError(t, h.OnFieldWritten(2, "y", schema.TypeString))
	assert.True(t, h.HasUpdate())
	require.NoError(t, h.OnFieldWritten(5, "a", schema.TypeInt))
	assert.True(t, h.HasUpdate(), "stays true")

	u := h.Updated()
	assert.Equal(t, 3, u.Len())
	assert.True(t, u.Covers(o))
	f, ok := u.Lookup(2)
	assert.True(t, ok)
	assert.Equal(t, schema.Field{ID: 2, Name: "y", Type: schema.TypeString}, f)
	assert.EqualValues(t, 2, u.Revision())

	_, ok = o.Lookup(2)
	assert.False(t, ok, "origin is never modified")

	assert.Same(t, u, h.Updated(), "repeated calls return the same snapshot")
	assert.True(t, u.Equal(h.Updated()))

	require.NoError(t, h.OnFieldWritten(3, "z", schema.TypeLong))
	require.NoError(t, h.OnFieldWritten(3, "z", schema.TypeLong))
	u2 := h.Updated()
	assert.Equal(t, 4, u2.Len())
	assert.Equal(t, 3, u.Len(), "earlier result is untouched")
	assert.Equal(t, schema.Fields{
		{ID: 2, Name: "y", Type: schema.TypeString},
		{ID: 3, Name: "z", Type: schema.TypeLong},
	}, h.Added())
	assert.Equal(t, before+2, testutil.ToFloat64(binmeta.FieldsDiscovered))
}

func TestHandlerConflict(t *testing.T) {
	h := binmeta.NewTypeHandler(origin(t))
	before := testutil.ToFloat64(binmeta.FieldConflicts)

	err := h.OnFieldWritten(5, "a", schema.TypeString)
	assert.ErrorIs(t, err, binmeta_errors.ErrSchemaConflict)
	var conflict *schema.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.EqualValues(t, 100, conflict.TypeID)
	assert.Equal(t, schema.TypeInt, conflict.Known.Type)
	assert.False(t, h.HasUpdate(), "conflicts are not merged")

	err = h.OnFieldWritten(5, "b", schema.TypeInt)
	assert.ErrorIs(t, err, binmeta_errors.ErrSchemaConflict)

	require.NoError(t, h.OnFieldWritten(7, "q", schema.TypeBool))
	err = h.OnFieldWritten(7, "q", schema.TypeByte)
	assert.ErrorIs(t, err, binmeta_errors.ErrSchemaConflict)
	assert.Equal(t, before+3, testutil.ToFloat64(binmeta.FieldConflicts))
}

func TestHandlerEndToEnd(t *testing.T) {
	o, err := schema.NewSnapshot(100, "Point", 1, schema.Field{ID: 1, Name: "x", Type: schema.TypeInt})
	require.NoError(t, err)
	h := binmeta.NewTypeHandler(o)
	require.NoError(t, h.OnFieldWritten(1, "x", schema.TypeInt))
	require.NoError(t, h.OnFieldWritten(2, "y", schema.TypeString))

	assert.True(t, h.HasUpdate())
	want, err := schema.NewSnapshot(100, "Point", 2,
		schema.Field{ID: 1, Name: "x", Type: schema.TypeInt},
		schema.Field{ID: 2, Name: "y", Type: schema.TypeString},
	)
	require.NoError(t, err)
	assert.True(t, want.Equal(h.Updated()))
}

func TestHandlersFromOneOrigin(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemory()
	base := schema.Empty(100, "Point")
	_, ok, err := reg.TryPublish(ctx, base, origin(t))
	require.NoError(t, err)
	require.True(t, ok)
	o, err := reg.Fetch(ctx, 100)
	require.NoError(t, err)

	h1 := binmeta.NewTypeHandler(o)
	h2 := binmeta.NewTypeHandler(o)
	require.NoError(t, h1.OnFieldWritten(2, "y", schema.TypeString))
	require.NoError(t, h2.OnFieldWritten(3, "z", schema.TypeLong))

	for _, h := range []*binmeta.TypeHandler{h2, h1} {
		_, err := registry.Publish(ctx, reg, h.Update(), registry.PublishOptions{})
		require.NoError(t, err)
	}
	final, err := reg.Fetch(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, final.Len())
	assert.True(t, final.Covers(h1.Updated()))
	assert.True(t, final.Covers(h2.Updated()))
}

func TestHandlerBadField(t *testing.T) {
	h := binmeta.NewTypeHandler(origin(t))
	assert.ErrorIs(t, h.OnFieldWritten(0, "zero", schema.TypeInt), binmeta_errors.ErrBadField)
	assert.ErrorIs(t, h.OnFieldWritten(7, "", schema.TypeInt), binmeta_errors.ErrBadField)
	assert.ErrorIs(t, h.OnFieldWritten(7, "tab\there", schema.TypeInt), binmeta_errors.ErrBadField)
	assert.ErrorIs(t, h.OnFieldWritten(7, "q", schema.TypeCode(999)), binmeta_errors.ErrBadField)
	assert.False(t, h.HasUpdate())
	assert.Same(t, h.Origin(), h.Updated())

	require.NoError(t, h.OnFieldWritten(7, "q", schema.TypeInt))
	assert.True(t, h.HasUpdate())
}

package binmeta

import (
	"errors"
	"sync/atomic"

	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/registry"
	"github.com/drpcorg/binmeta/schema"
	"github.com/google/uuid"
)

// TypeHandler tracks type updates during one write session. It is fed
// every field the encoder writes and remembers the ones its origin
// snapshot does not know. It never talks to the registry; the caller
// publishes Update() once the object is fully written.
//
// A handler belongs to one goroutine while the session runs. Its result
// may be read from another goroutine afterwards.
type TypeHandler struct {
	origin  *schema.Snapshot
	builder *schema.Builder
	added   atomic.Int32
	updated atomic.Pointer[schema.Snapshot]
	session uuid.UUID
}

func NewTypeHandler(origin *schema.Snapshot) *TypeHandler {
	return &TypeHandler{origin: origin}
}

// OnFieldWritten is called once per field, in write order. A field
// that contradicts a known one fails with a *schema.ConflictError and
// is not recorded; the write should be abandoned. A malformed
// descriptor (zero ID, empty or non-printable name, unknown type code)
// fails with ErrBadField the same way.
func (h *TypeHandler) OnFieldWritten(fieldID int32, fieldName string, fieldType schema.TypeCode) error {
	f := schema.Field{ID: fieldID, Name: fieldName, Type: fieldType}
	if have, ok := h.origin.Lookup(fieldID); ok && have.Same(f) {
		return nil
	}
	if h.builder == nil {
		h.builder = schema.NewBuilder(h.origin)
	}
	n := h.builder.Len()
	if err := h.builder.Add(f); err != nil {
		if errors.Is(err, binmeta_errors.ErrSchemaConflict) {
			FieldConflicts.Inc()
		}
		return err
	}
	if h.builder.Len() > n {
		FieldsDiscovered.Inc()
		h.added.Store(int32(h.builder.Len()))
	}
	return nil
}

// HasUpdate reports whether any new field was seen so far.
func (h *TypeHandler) HasUpdate() bool {
	return h.added.Load() > 0
}

// Updated is the origin merged with every new field seen so far, or the
// origin itself when there is none. The merged snapshot is built on first
// request and reused until another new field shows up.
func (h *TypeHandler) Updated() *schema.Snapshot {
	n := int(h.added.Load())
	if n == 0 {
		return h.origin
	}
	if u := h.updated.Load(); u != nil && u.Len() == h.origin.Len()+n {
		return u
	}
	u := h.builder.Build()
	h.updated.Store(u)
	return u
}

func (h *TypeHandler) Origin() *schema.Snapshot {
	return h.origin
}

// Added lists the new fields in write order.
func (h *TypeHandler) Added() schema.Fields {
	if h.builder == nil {
		return nil
	}
	return h.builder.Added()
}

func (h *TypeHandler) Update() registry.Update {
	return registry.Update{
		Origin:  h.origin,
		Updated: h.Updated(),
		Added:   h.Added(),
	}
}

// Session identifies the write session in logs; zero unless the handler
// came from a Manager.
func (h *TypeHandler) Session() uuid.UUID {
	return h.session
}

package binmeta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/ids"
	"github.com/drpcorg/binmeta/registry"
	"github.com/drpcorg/binmeta/schema"
	"github.com/drpcorg/binmeta/utils"
	"github.com/google/uuid"
)

type Options struct {
	Logger  utils.Logger
	Mapper  ids.Mapper
	Publish registry.PublishOptions
}

func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	if o.Mapper == nil {
		o.Mapper = ids.NewHashMapper()
	}
	if o.Publish.Logger == nil {
		o.Publish.Logger = o.Logger
	}
	o.Publish.SetDefaults()
}

// Manager hands out write sessions for named types and publishes what
// they discover.
type Manager struct {
	reg  registry.Registry
	opts Options
}

func NewManager(reg registry.Registry, opts Options) *Manager {
	opts.SetDefaults()
	return &Manager{reg: reg, opts: opts}
}

func (m *Manager) Registry() registry.Registry {
	return m.reg
}

func (m *Manager) Logger() utils.Logger {
	return m.opts.Logger
}

func (m *Manager) TypeID(typeName string) int32 {
	return m.opts.Mapper.TypeID(typeName)
}

func (m *Manager) FieldID(typeID int32, fieldName string) int32 {
	return m.opts.Mapper.FieldID(typeID, fieldName)
}

// Snapshot is the current snapshot of a type, revision 0 if nothing was
// published for it yet.
func (m *Manager) Snapshot(ctx context.Context, typeName string) (*schema.Snapshot, error) {
	typeID := m.TypeID(typeName)
	snap, err := m.reg.Fetch(ctx, typeID)
	if errors.Is(err, binmeta_errors.ErrTypeUnknown) {
		return schema.Empty(typeID, typeName), nil
	}
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(snap.TypeName(), typeName) {
		return nil, fmt.Errorf("%w: %q and %q both map to %d",
			binmeta_errors.ErrTypeIDCollision, snap.TypeName(), typeName, typeID)
	}
	return snap, nil
}

// Handler starts a write session for one object of the named type.
func (m *Manager) Handler(ctx context.Context, typeName string) (*TypeHandler, error) {
	snap, err := m.Snapshot(ctx, typeName)
	if err != nil {
		return nil, err
	}
	h := NewTypeHandler(snap)
	h.session = uuid.Must(uuid.NewV7())
	Sessions.Inc()
	return h, nil
}

// Submit publishes the session's discoveries, if any, and returns the
// snapshot the registry holds for the type afterwards. Sessions without
// new fields never reach the registry.
func (m *Manager) Submit(ctx context.Context, h *TypeHandler) (*schema.Snapshot, error) {
	if !h.HasUpdate() {
		return h.Origin(), nil
	}
	ctx = utils.WithDefaultArgs(ctx, "session", h.Session().String())
	snap, err := registry.Publish(ctx, m.reg, h.Update(), m.opts.Publish)
	if err != nil {
		m.opts.Logger.ErrorCtx(ctx, "type publish failed",
			"type", h.Origin().TypeName(), "type_id", h.Origin().TypeID(), "err", err)
		return nil, err
	}
	return snap, nil
}

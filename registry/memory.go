package registry

import (
	"cmp"
	"context"
	"slices"
	"sync/atomic"

	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/schema"
	"github.com/puzpuzpuz/xsync/v3"
)

type slot struct {
	current atomic.Pointer[schema.Snapshot]
}

// Memory keeps one atomically swapped pointer per type. Reads never
// lock; a publish is a single CompareAndSwap on the type's slot.
type Memory struct {
	slots *xsync.MapOf[int32, *slot]
}

func NewMemory() *Memory {
	return &Memory{slots: xsync.NewMapOf[int32, *slot]()}
}

func (m *Memory) Fetch(_ context.Context, typeID int32) (*schema.Snapshot, error) {
	if s, ok := m.slots.Load(typeID); ok {
		if snap := s.current.Load(); snap != nil {
			return snap, nil
		}
	}
	return nil, binmeta_errors.ErrTypeUnknown
}

func (m *Memory) TryPublish(_ context.Context, expected, updated *schema.Snapshot) (*schema.Snapshot, bool, error) {
	_, current, ok, err := m.swap(expected, updated)
	return current, ok, err
}

// swap is TryPublish that also reports what the slot held before a
// successful swap.
func (m *Memory) swap(expected, updated *schema.Snapshot) (prev, current *schema.Snapshot, ok bool, err error) {
	s, _ := m.slots.LoadOrCompute(updated.TypeID(), func() *slot { return &slot{} })
	cur := s.current.Load()
	stale, err := checkPublish(cur, expected, updated)
	if err != nil {
		return nil, cur, false, err
	}
	if stale {
		return nil, cur, false, nil
	}
	if !s.current.CompareAndSwap(cur, updated) {
		return nil, s.current.Load(), false, nil
	}
	return cur, updated, true, nil
}

// rollback puts prev back in place of updated, unless updated was
// already replaced.
func (m *Memory) rollback(updated, prev *schema.Snapshot) bool {
	s, ok := m.slots.Load(updated.TypeID())
	if !ok {
		return false
	}
	return s.current.CompareAndSwap(updated, prev)
}

// Store installs a snapshot unconditionally unless the slot already
// holds a covering one. Used to load persisted state.
func (m *Memory) Store(snap *schema.Snapshot) *schema.Snapshot {
	s, _ := m.slots.LoadOrCompute(snap.TypeID(), func() *slot { return &slot{} })
	for {
		cur := s.current.Load()
		next := schema.Union(cur, snap)
		if next == cur || s.current.CompareAndSwap(cur, next) {
			return next
		}
	}
}

func (m *Memory) Types(_ context.Context) ([]*schema.Snapshot, error) {
	var ret []*schema.Snapshot
	m.slots.Range(func(_ int32, s *slot) bool {
		if snap := s.current.Load(); snap != nil {
			ret = append(ret, snap)
		}
		return true
	})
	slices.SortFunc(ret, func(a, b *schema.Snapshot) int {
		return cmp.Compare(a.TypeID(), b.TypeID())
	})
	return ret, nil
}

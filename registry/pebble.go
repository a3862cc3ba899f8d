package registry

import (
	"context"
	"encoding/binary"
	"io"
	"slices"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/schema"
	"github.com/drpcorg/binmeta/utils"
	"github.com/pkg/errors"
)

type PebbleOptions struct {
	pebble.Options
	Logger utils.Logger
	// Sync makes every publish fsync the WAL.
	Sync bool
}

// Pebble is a Memory registry whose publishes are persisted. The
// compare-and-swap happens in memory; the store only ever receives
// merges, and its merge operator unions snapshots, so writes that reach
// the disk out of swap order still leave the union on disk. A snapshot
// whose write fails is taken back out of memory.
type Pebble struct {
	mem    *Memory
	db     *pebble.DB
	merge  func(key, value []byte, opts *pebble.WriteOptions) error
	wo     pebble.WriteOptions
	log    utils.Logger
	closed atomic.Bool
}

const mergerName = "binmeta.snapshot.union"

// TKey is the store key of a type snapshot: 'T' + type id (BE) + 'T'.
func TKey(typeID int32) []byte {
	key := []byte{'T'}
	key = binary.BigEndian.AppendUint32(key, uint32(typeID))
	return append(key, 'T')
}

func OpenPebble(dir string, opts PebbleOptions) (*Pebble, error) {
	opts.Merger = &pebble.Merger{
		Name:  mergerName,
		Merge: mergeSnapshots,
	}
	db, err := pebble.Open(dir, &opts.Options)
	if err != nil {
		return nil, errors.Wrapf(err, "open registry at %s", dir)
	}
	p := &Pebble{
		mem:   NewMemory(),
		db:    db,
		merge: db.Merge,
		wo:    pebble.WriteOptions{Sync: opts.Sync},
		log:   opts.Logger,
	}
	if err := p.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pebble) load() error {
	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{'T'},
		UpperBound: []byte{'U'},
	})
	if err != nil {
		return errors.Wrap(err, "scan registry")
	}
	defer it.Close()
	n := 0
	for it.First(); it.Valid(); it.Next() {
		snap, err := schema.ParseSnapshot(it.Value())
		if err != nil {
			return errors.Wrapf(err, "load key %x", it.Key())
		}
		p.mem.Store(snap)
		n++
	}
	if p.log != nil {
		p.log.Info("registry loaded", "types", n)
	}
	return it.Error()
}

func (p *Pebble) Fetch(ctx context.Context, typeID int32) (*schema.Snapshot, error) {
	if p.closed.Load() {
		return nil, binmeta_errors.ErrClosed
	}
	return p.mem.Fetch(ctx, typeID)
}

func (p *Pebble) TryPublish(ctx context.Context, expected, updated *schema.Snapshot) (*schema.Snapshot, bool, error) {
	if p.closed.Load() {
		return nil, false, binmeta_errors.ErrClosed
	}
	prev, current, ok, err := p.mem.swap(expected, updated)
	if err != nil || !ok {
		return current, ok, err
	}
	if err := p.merge(TKey(updated.TypeID()), updated.TLV(), &p.wo); err != nil {
		if !p.mem.rollback(updated, prev) && p.log != nil {
			// a newer snapshot built on updated is in place; its own
			// write carries updated's fields
			p.log.Warn("failed write already superseded",
				"type_id", updated.TypeID(), "revision", updated.Revision(), "err", err)
		}
		return nil, false, errors.Wrapf(err, "persist type %d", updated.TypeID())
	}
	return current, true, nil
}

func (p *Pebble) Types(ctx context.Context) ([]*schema.Snapshot, error) {
	if p.closed.Load() {
		return nil, binmeta_errors.ErrClosed
	}
	return p.mem.Types(ctx)
}

// Stored reads a snapshot straight from the store, bypassing memory.
func (p *Pebble) Stored(typeID int32) (*schema.Snapshot, error) {
	val, closer, err := p.db.Get(TKey(typeID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, binmeta_errors.ErrTypeUnknown
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get type %d", typeID)
	}
	defer closer.Close()
	return schema.ParseSnapshot(val)
}

func (p *Pebble) Database() *pebble.DB {
	return p.db
}

func (p *Pebble) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return binmeta_errors.ErrClosed
	}
	return p.db.Close()
}

type snapshotMerger struct {
	old  bool
	vals [][]byte
}

func mergeSnapshots(_, value []byte) (pebble.ValueMerger, error) {
	return &snapshotMerger{vals: [][]byte{slices.Clone(value)}}, nil
}

func (m *snapshotMerger) MergeNewer(value []byte) error {
	m.vals = append(m.vals, slices.Clone(value))
	return nil
}

func (m *snapshotMerger) MergeOlder(value []byte) error {
	m.vals = append(m.vals, slices.Clone(value))
	m.old = true
	return nil
}

func (m *snapshotMerger) Finish(_ bool) ([]byte, io.Closer, error) {
	if m.old {
		slices.Reverse(m.vals)
	}
	var acc *schema.Snapshot
	for _, val := range m.vals {
		snap, err := schema.ParseSnapshot(val)
		if err != nil {
			return nil, nil, err
		}
		acc = schema.Union(acc, snap)
	}
	if acc == nil {
		return nil, nil, nil
	}
	return acc.TLV(), nil, nil
}

package schema

import (
	"fmt"
	"maps"

	"github.com/drpcorg/binmeta/binmeta_errors"
)

// Builder produces a new snapshot out of a base one plus newly observed
// fields. The base is never modified: its maps are copied on the first
// Add that brings something new, and every Build hands out its own copy.
type Builder struct {
	base   *Snapshot
	fields map[int32]Field
	names  map[string]int32
	added  Fields
}

func NewBuilder(base *Snapshot) *Builder {
	return &Builder{base: base}
}

func (b *Builder) Base() *Snapshot {
	return b.base
}

func (b *Builder) fork() {
	b.fields = make(map[int32]Field, len(b.base.fields)+1)
	b.names = make(map[string]int32, len(b.base.names)+1)
	maps.Copy(b.fields, b.base.fields)
	maps.Copy(b.names, b.base.names)
}

// Add records f. Fields known to the base as is are skipped.
func (b *Builder) Add(f Field) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %s", binmeta_errors.ErrBadField, f)
	}
	known, err := b.base.Check(f)
	if err != nil || known {
		return err
	}
	if b.fields == nil {
		b.fork()
	}
	if have, ok := b.fields[f.ID]; ok {
		if have.Same(f) {
			return nil
		}
		return b.base.conflict(have, f)
	}
	if id, ok := b.names[f.Name]; ok {
		return b.base.conflict(b.fields[id], f)
	}
	b.fields[f.ID] = f
	b.names[f.Name] = f.ID
	b.added = append(b.added, f)
	return nil
}

// Len is the number of fields added on top of the base.
func (b *Builder) Len() int {
	return len(b.added)
}

// Added lists the new fields in the order they were added.
func (b *Builder) Added() Fields {
	return append(Fields(nil), b.added...)
}

// Build returns the base itself when nothing was added, otherwise a
// snapshot one revision past the base.
func (b *Builder) Build() *Snapshot {
	if len(b.added) == 0 {
		return b.base
	}
	return b.buildAt(b.base.revision + 1)
}

func (b *Builder) buildAt(revision int64) *Snapshot {
	if len(b.added) == 0 && revision == b.base.revision {
		return b.base
	}
	s := &Snapshot{
		typeID:   b.base.typeID,
		typeName: b.base.typeName,
		revision: revision,
	}
	if b.fields == nil {
		s.fields, s.names = b.base.fields, b.base.names
	} else {
		s.fields, s.names = maps.Clone(b.fields), maps.Clone(b.names)
	}
	s.seal()
	return s
}

// Merge is current plus added, or current itself if it already knows
// every added field.
func Merge(current *Snapshot, added Fields) (*Snapshot, error) {
	b := NewBuilder(current)
	for _, f := range added {
		if err := b.Add(f); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Union combines two stored versions of one type regardless of the
// order they were written in. On conflict the older definition stays.
// The revision is the highest one seen.
func Union(older, newer *Snapshot) *Snapshot {
	if older == nil {
		return newer
	}
	if newer == nil {
		return older
	}
	if newer.revision >= older.revision && newer.Covers(older) {
		return newer
	}
	if older.revision >= newer.revision && older.Covers(newer) {
		return older
	}
	b := NewBuilder(older)
	for f := range newer.Fields() {
		_ = b.Add(f)
	}
	rev := max(older.revision, newer.revision)
	if len(b.added) > 0 {
		rev = max(rev, older.revision+1)
	}
	return b.buildAt(rev)
}

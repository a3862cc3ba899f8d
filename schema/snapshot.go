package schema

import (
	"fmt"
	"iter"
	"slices"

	"github.com/drpcorg/binmeta/binmeta_errors"
)

// Snapshot is the known field set of one type at one revision.
// A Snapshot never changes once built; newer revisions are new values,
// so any number of write sessions may hold one as their origin while
// the registry moves on.
type Snapshot struct {
	typeID   int32
	typeName string
	revision int64
	fields   map[int32]Field
	names    map[string]int32
	order    []int32
}

// Empty is the revision-0 snapshot of a type nobody has published yet.
func Empty(typeID int32, typeName string) *Snapshot {
	return &Snapshot{typeID: typeID, typeName: typeName}
}

// NewSnapshot builds a snapshot from a complete field set. Repeated
// identical descriptors are folded, contradicting ones are a conflict.
func NewSnapshot(typeID int32, typeName string, revision int64, fields ...Field) (*Snapshot, error) {
	if revision < 0 {
		return nil, fmt.Errorf("%w: negative revision %d", binmeta_errors.ErrBadSnapshot, revision)
	}
	s := &Snapshot{
		typeID:   typeID,
		typeName: typeName,
		revision: revision,
		fields:   make(map[int32]Field, len(fields)),
		names:    make(map[string]int32, len(fields)),
	}
	for _, f := range fields {
		if !f.Valid() {
			return nil, fmt.Errorf("%w: %s", binmeta_errors.ErrBadField, f)
		}
		known, err := s.Check(f)
		if err != nil {
			return nil, err
		}
		if !known {
			s.fields[f.ID] = f
			s.names[f.Name] = f.ID
		}
	}
	s.seal()
	return s, nil
}

func (s *Snapshot) seal() {
	s.order = make([]int32, 0, len(s.fields))
	for id := range s.fields {
		s.order = append(s.order, id)
	}
	slices.Sort(s.order)
}

func (s *Snapshot) TypeID() int32 {
	return s.typeID
}

func (s *Snapshot) TypeName() string {
	return s.typeName
}

// Revision grows by one with every merge that adds fields.
func (s *Snapshot) Revision() int64 {
	return s.revision
}

func (s *Snapshot) Len() int {
	return len(s.fields)
}

// Lookup returns the descriptor of a field. A miss means the field is
// new relative to this snapshot.
func (s *Snapshot) Lookup(fieldID int32) (f Field, ok bool) {
	f, ok = s.fields[fieldID]
	return
}

func (s *Snapshot) FindName(name string) (f Field, ok bool) {
	id, ok := s.names[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[id], true
}

// Check reports whether f is already known as is. A descriptor that
// contradicts a known field, by ID or by name, yields a *ConflictError.
func (s *Snapshot) Check(f Field) (known bool, err error) {
	if have, ok := s.fields[f.ID]; ok {
		if have.Same(f) {
			return true, nil
		}
		return false, s.conflict(have, f)
	}
	if id, ok := s.names[f.Name]; ok {
		return false, s.conflict(s.fields[id], f)
	}
	return false, nil
}

func (s *Snapshot) conflict(known, got Field) error {
	return &ConflictError{TypeID: s.typeID, TypeName: s.typeName, Known: known, Got: got}
}

// Fields iterates in ascending field ID order.
func (s *Snapshot) Fields() iter.Seq[Field] {
	return func(yield func(Field) bool) {
		for _, id := range s.order {
			if !yield(s.fields[id]) {
				return
			}
		}
	}
}

// Covers reports whether every field of other is known to s as is.
func (s *Snapshot) Covers(other *Snapshot) bool {
	if other == nil {
		return true
	}
	for id, f := range other.fields {
		have, ok := s.fields[id]
		if !ok || !have.Same(f) {
			return false
		}
	}
	return true
}

// Equal compares type and field set, ignoring the revision.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == other {
		return true
	}
	if other == nil || s.typeID != other.typeID || len(s.fields) != len(other.fields) {
		return false
	}
	return s.Covers(other)
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("%s#%d@%d%v", s.typeName, s.typeID, s.revision, slices.Collect(s.Fields()))
}

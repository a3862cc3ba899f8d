package schema

// A type is a set of fields. Each Field has an ID derived from its
// name and a declared TypeCode. Fields are discovered while objects are
// written; they can be appended to a type but never removed or retyped.
// Two descriptors with the same ID but a different name or type are a
// conflict, never a rename.

import (
	"fmt"
	"unicode/utf8"
)

type Field struct {
	ID   int32
	Name string
	Type TypeCode
}

func (f Field) Valid() bool {
	for _, l := range f.Name { // has unsafe chars
		if l < ' ' {
			return false
		}
	}
	return f.ID != 0 && f.Type.Valid() && len(f.Name) > 0 && utf8.ValidString(f.Name)
}

// Same reports whether g describes the same field as f.
func (f Field) Same(g Field) bool {
	return f.ID == g.ID && f.Name == g.Name && f.Type == g.Type
}

func (f Field) String() string {
	return fmt.Sprintf("%d:%s(%s)", f.ID, f.Name, f.Type)
}

type Fields []Field

func (fs Fields) FindID(id int32) int {
	for i := 0; i < len(fs); i++ {
		if fs[i].ID == id {
			return i
		}
	}
	return -1
}

func (fs Fields) FindName(name string) int {
	for i := 0; i < len(fs); i++ {
		if fs[i].Name == name {
			return i
		}
	}
	return -1
}

// Package ids derives the numeric type and field identifiers that the
// rest of binmeta treats as opaque keys.
package ids

import (
	"strings"

	"github.com/cespare/xxhash"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Mapper turns names into stable IDs. Every writer and reader of a type
// must use the same Mapper, otherwise their field IDs disagree.
type Mapper interface {
	TypeID(typeName string) int32
	FieldID(typeID int32, fieldName string) int32
}

// HashMapper hashes lowercased names, so "userId" and "UserID" are the
// same field. Field IDs do not depend on the type.
type HashMapper struct {
	types  *lru.Cache[string, int32]
	fields *lru.Cache[string, int32]
}

const (
	DefaultTypeCacheSize  = 1000
	DefaultFieldCacheSize = 100000
)

func NewHashMapper() *HashMapper {
	types, _ := lru.New[string, int32](DefaultTypeCacheSize)
	fields, _ := lru.New[string, int32](DefaultFieldCacheSize)
	return &HashMapper{types: types, fields: fields}
}

func (m *HashMapper) TypeID(typeName string) int32 {
	return cached(m.types, typeName)
}

func (m *HashMapper) FieldID(_ int32, fieldName string) int32 {
	return cached(m.fields, fieldName)
}

func cached(cache *lru.Cache[string, int32], name string) int32 {
	if id, ok := cache.Get(name); ok {
		return id
	}
	id := Hash(name)
	cache.Add(name, id)
	return id
}

// Hash folds xxhash64 of the lowercased name into a non-zero int32;
// zero is never a valid ID.
func Hash(name string) int32 {
	h := xxhash.Sum64String(strings.ToLower(name))
	id := int32(uint32(h) ^ uint32(h>>32))
	if id == 0 {
		id = 1
	}
	return id
}

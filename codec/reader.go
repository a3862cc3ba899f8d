package codec

import (
	"context"
	"errors"
	"fmt"

	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/protocol"
	"github.com/drpcorg/binmeta/registry"
	"github.com/drpcorg/binmeta/schema"
)

type Value struct {
	Field schema.Field
	Value any
}

type Object struct {
	TypeID   int32
	TypeName string
	Fields   []Value
}

// Get finds a field value by name.
func (o *Object) Get(name string) (any, bool) {
	for _, v := range o.Fields {
		if v.Field.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}

func badObject(err error) error {
	return fmt.Errorf("%w: %w", binmeta_errors.ErrBadObject, err)
}

// Decode reads an object written by Writer. Field names come from the
// registry; a field the registry does not know yet keeps an empty name.
func Decode(ctx context.Context, reg registry.Registry, data []byte) (*Object, error) {
	body, rest, err := protocol.TakeWary('O', data)
	if err != nil {
		return nil, badObject(err)
	}
	if len(rest) != 0 {
		return nil, badObject(protocol.ErrBadRecord)
	}
	idb, body, err := protocol.TakeWary('I', body)
	if err != nil {
		return nil, badObject(err)
	}
	typeID, err := protocol.UnzipInt32(idb)
	if err != nil {
		return nil, badObject(err)
	}
	snap, err := reg.Fetch(ctx, typeID)
	if errors.Is(err, binmeta_errors.ErrTypeUnknown) {
		snap = schema.Empty(typeID, "")
	} else if err != nil {
		return nil, err
	}

	obj := &Object{TypeID: typeID, TypeName: snap.TypeName()}
	for len(body) > 0 {
		var fb []byte
		if fb, body, err = protocol.TakeWary('F', body); err != nil {
			return nil, badObject(err)
		}
		v, err := decodeField(snap, fb)
		if err != nil {
			return nil, err
		}
		obj.Fields = append(obj.Fields, v)
	}
	return obj, nil
}

func decodeField(snap *schema.Snapshot, body []byte) (v Value, err error) {
	var idb, tb, vb []byte
	if idb, body, err = protocol.TakeWary('I', body); err != nil {
		return v, badObject(err)
	}
	if tb, body, err = protocol.TakeWary('T', body); err != nil {
		return v, badObject(err)
	}
	if vb, body, err = protocol.TakeWary('V', body); err != nil {
		return v, badObject(err)
	}
	if len(body) != 0 {
		return v, badObject(protocol.ErrBadRecord)
	}
	fid, err := protocol.UnzipInt32(idb)
	if err != nil {
		return v, badObject(err)
	}
	code, err := protocol.UnzipInt32(tb)
	if err != nil {
		return v, badObject(err)
	}
	v.Field = schema.Field{ID: fid, Type: schema.TypeCode(code)}
	if known, ok := snap.Lookup(fid); ok {
		if known.Type != v.Field.Type {
			v.Field.Name = known.Name
			return v, &schema.ConflictError{TypeID: snap.TypeID(), TypeName: snap.TypeName(), Known: known, Got: v.Field}
		}
		v.Field = known
	}
	v.Value, err = decodeValue(v.Field.Type, vb)
	return v, err
}

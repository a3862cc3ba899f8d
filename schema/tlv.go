package schema

import (
	"fmt"

	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/protocol"
)

// Stored form of a snapshot:
//
//	Y( I(type id) N(type name) R(revision) F( I(id) N(name) T(type) )* )
//
// Ints are zigzag varints. Fields go in ascending ID order, so equal
// snapshots have equal bytes.

func (f Field) TLV() []byte {
	return protocol.Record('F',
		protocol.Record('I', protocol.ZipInt32(f.ID)),
		protocol.Record('N', []byte(f.Name)),
		protocol.Record('T', protocol.ZipInt32(int32(f.Type))),
	)
}

func (s *Snapshot) TLV() []byte {
	recs := protocol.Records{
		protocol.Record('I', protocol.ZipInt32(s.typeID)),
		protocol.Record('N', []byte(s.typeName)),
		protocol.Record('R', protocol.ZipInt64(s.revision)),
	}
	for f := range s.Fields() {
		recs = append(recs, f.TLV())
	}
	return protocol.Record('Y', recs...)
}

func badSnapshot(err error) error {
	return fmt.Errorf("%w: %w", binmeta_errors.ErrBadSnapshot, err)
}

func ParseSnapshot(tlv []byte) (*Snapshot, error) {
	body, rest, err := protocol.TakeWary('Y', tlv)
	if err != nil {
		return nil, badSnapshot(err)
	}
	if len(rest) != 0 {
		return nil, badSnapshot(protocol.ErrBadRecord)
	}
	var idb, name, revb []byte
	if idb, body, err = protocol.TakeWary('I', body); err != nil {
		return nil, badSnapshot(err)
	}
	if name, body, err = protocol.TakeWary('N', body); err != nil {
		return nil, badSnapshot(err)
	}
	if revb, body, err = protocol.TakeWary('R', body); err != nil {
		return nil, badSnapshot(err)
	}
	typeID, err := protocol.UnzipInt32(idb)
	if err != nil {
		return nil, badSnapshot(err)
	}
	rev, err := protocol.UnzipInt64(revb)
	if err != nil {
		return nil, badSnapshot(err)
	}
	var fields Fields
	for len(body) > 0 {
		var fb []byte
		if fb, body, err = protocol.TakeWary('F', body); err != nil {
			return nil, badSnapshot(err)
		}
		f, err := ParseField(fb)
		if err != nil {
			return nil, badSnapshot(err)
		}
		fields = append(fields, f)
	}
	s, err := NewSnapshot(typeID, string(name), rev, fields...)
	if err != nil {
		return nil, badSnapshot(err)
	}
	return s, nil
}

// ParseField reads the body of an F record.
func ParseField(body []byte) (f Field, err error) {
	var idb, name, tb []byte
	if idb, body, err = protocol.TakeWary('I', body); err != nil {
		return
	}
	if name, body, err = protocol.TakeWary('N', body); err != nil {
		return
	}
	if tb, body, err = protocol.TakeWary('T', body); err != nil {
		return
	}
	if len(body) != 0 {
		return f, protocol.ErrBadRecord
	}
	if f.ID, err = protocol.UnzipInt32(idb); err != nil {
		return
	}
	code, err := protocol.UnzipInt32(tb)
	if err != nil {
		return
	}
	f.Name = string(name)
	f.Type = TypeCode(code)
	return f, nil
}

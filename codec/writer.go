// Package codec writes and reads binmeta objects. It is the encoder side
// of schema discovery: every field written goes through the session's
// TypeHandler, and Finish publishes whatever the session discovered.
//
// Object layout:
//
//	O( I(type id) F( I(field id) T(type code) V(value) )* )
package codec

import (
	"context"
	"fmt"
	"time"

	"github.com/drpcorg/binmeta"
	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/protocol"
	"github.com/drpcorg/binmeta/schema"
	"github.com/google/uuid"
)

// Writer encodes one object. The first error sticks: later writes are
// ignored and Finish reports it.
type Writer struct {
	mgr     *binmeta.Manager
	handler *binmeta.TypeHandler
	typeID  int32
	written map[int32]struct{}
	fields  protocol.Records
	err     error
}

func NewWriter(ctx context.Context, mgr *binmeta.Manager, typeName string) (*Writer, error) {
	h, err := mgr.Handler(ctx, typeName)
	if err != nil {
		return nil, err
	}
	return &Writer{
		mgr:     mgr,
		handler: h,
		typeID:  h.Origin().TypeID(),
		written: make(map[int32]struct{}),
	}, nil
}

func (w *Writer) write(name string, code schema.TypeCode, value []byte) {
	if w.err != nil {
		return
	}
	fid := w.mgr.FieldID(w.typeID, name)
	if _, ok := w.written[fid]; ok {
		w.err = fmt.Errorf("%w: field %q written twice", binmeta_errors.ErrBadObject, name)
		return
	}
	if err := w.handler.OnFieldWritten(fid, name, code); err != nil {
		w.err = err
		return
	}
	w.written[fid] = struct{}{}
	w.fields = append(w.fields, protocol.Record('F',
		protocol.Record('I', protocol.ZipInt32(fid)),
		protocol.Record('T', protocol.ZipInt32(int32(code))),
		protocol.Record('V', value),
	))
}

func (w *Writer) WriteBool(name string, v bool) {
	w.write(name, schema.TypeBool, boolValue(v))
}

func (w *Writer) WriteInt32(name string, v int32) {
	w.write(name, schema.TypeInt, protocol.ZipInt32(v))
}

func (w *Writer) WriteInt64(name string, v int64) {
	w.write(name, schema.TypeLong, protocol.ZipInt64(v))
}

func (w *Writer) WriteFloat64(name string, v float64) {
	w.write(name, schema.TypeDouble, float64Value(v))
}

func (w *Writer) WriteString(name string, v string) {
	w.write(name, schema.TypeString, []byte(v))
}

func (w *Writer) WriteBytes(name string, v []byte) {
	w.write(name, schema.TypeArrayByte, v)
}

func (w *Writer) WriteUUID(name string, v uuid.UUID) {
	w.write(name, schema.TypeUUID, v[:])
}

// WriteTime keeps nanosecond precision; the location is not stored.
func (w *Writer) WriteTime(name string, v time.Time) {
	w.write(name, schema.TypeTimestamp, timeValue(v))
}

func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) Handler() *binmeta.TypeHandler {
	return w.handler
}

// Finish publishes the session's new fields and returns the encoded
// object along with the type snapshot that now covers it. A failed
// writer publishes nothing.
func (w *Writer) Finish(ctx context.Context) ([]byte, *schema.Snapshot, error) {
	if w.err != nil {
		return nil, nil, w.err
	}
	snap, err := w.mgr.Submit(ctx, w.handler)
	if err != nil {
		return nil, nil, err
	}
	recs := append(protocol.Records{protocol.Record('I', protocol.ZipInt32(w.typeID))}, w.fields...)
	return protocol.Record('O', recs...), snap, nil
}

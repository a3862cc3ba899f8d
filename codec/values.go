package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/drpcorg/binmeta/binmeta_errors"
	"github.com/drpcorg/binmeta/protocol"
	"github.com/drpcorg/binmeta/schema"
	"github.com/google/uuid"
)

func boolValue(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func float64Value(v float64) []byte {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v))
}

func timeValue(v time.Time) []byte {
	return protocol.ZipInt64(v.UnixNano())
}

// decodeValue turns a V record body into a Go value. Codes without a
// dedicated writer come back as raw bytes.
func decodeValue(code schema.TypeCode, body []byte) (any, error) {
	switch code {
	case schema.TypeBool:
		if len(body) != 1 || body[0] > 1 {
			return nil, badValue(code, body)
		}
		return body[0] == 1, nil
	case schema.TypeInt:
		v, err := protocol.UnzipInt32(body)
		if err != nil {
			return nil, badValue(code, body)
		}
		return v, nil
	case schema.TypeLong:
		v, err := protocol.UnzipInt64(body)
		if err != nil {
			return nil, badValue(code, body)
		}
		return v, nil
	case schema.TypeDouble:
		if len(body) != 8 {
			return nil, badValue(code, body)
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(body)), nil
	case schema.TypeString:
		return string(body), nil
	case schema.TypeUUID:
		v, err := uuid.FromBytes(body)
		if err != nil {
			return nil, badValue(code, body)
		}
		return v, nil
	case schema.TypeTimestamp:
		v, err := protocol.UnzipInt64(body)
		if err != nil {
			return nil, badValue(code, body)
		}
		return time.Unix(0, v).UTC(), nil
	default:
		return slices.Clone(body), nil
	}
}

func badValue(code schema.TypeCode, body []byte) error {
	return fmt.Errorf("%w: bad %s value %x", binmeta_errors.ErrBadObject, code, body)
}

package protocol

import "encoding/binary"

// ZipInt64 is the zigzag varint form of n, as stored in I/R/T records.
func ZipInt64(n int64) []byte {
	return binary.AppendVarint(nil, n)
}

// UnzipInt64 reads a ZipInt64 body. The whole body must be consumed.
func UnzipInt64(body []byte) (n int64, err error) {
	n, l := binary.Varint(body)
	if l <= 0 || l != len(body) {
		return 0, ErrBadRecord
	}
	return n, nil
}

func ZipInt32(n int32) []byte {
	return ZipInt64(int64(n))
}

func UnzipInt32(body []byte) (int32, error) {
	n, err := UnzipInt64(body)
	if err != nil {
		return 0, err
	}
	if n != int64(int32(n)) {
		return 0, ErrBadRecord
	}
	return int32(n), nil
}

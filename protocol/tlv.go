// Record framing follows ToyTLV (MIT licence) by Victor Grishchenko, 2024.
// Original project: https://github.com/learn-decentralized-systems/toytlv

/*
Package protocol implements the TLV (Type-Length-Value) framing used by
binmeta for stored type snapshots and encoded objects.

# Record Format

Three header shapes are selected automatically from the body size:

 1. Tiny (1 byte) - bodies of 0-9 bytes, lowercase lit only:
    [('0' + body_length)]. The record type is not preserved.

 2. Short (2 bytes) - bodies up to 255 bytes:
    [lowercase_type, body_length]

 3. Long (5 bytes) - bodies up to 2GB:
    [uppercase_type, length_as_4byte_little_endian]

Record types are the letters A-Z. An uppercase lit never produces a tiny
record, so binmeta always writes uppercase lits and can rely on the type
surviving the round trip.

# Parsing

Everything binmeta parses came from storage or another process, so
TakeWary is the only reader: it returns ErrIncomplete for a truncated
record and ErrBadRecord for a record of the wrong type or a garbage
header.
*/
package protocol

import (
	"encoding/binary"
	"errors"
)

const CaseBit uint8 = 'a' - 'A'

var (
	ErrIncomplete = errors.New("incomplete data")
	ErrBadRecord  = errors.New("bad TLV record format")
)

// ProbeHeader reads a record header.
// lit is 'A'-'Z', '0' for tiny records, '-' for garbage and 0 when
// the header itself is incomplete.
func ProbeHeader(data []byte) (lit byte, hdrlen, bodylen int) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	dlit := data[0]
	switch {
	case dlit >= '0' && dlit <= '9':
		lit = '0'
		bodylen = int(dlit - '0')
		hdrlen = 1
	case dlit >= 'a' && dlit <= 'z':
		if len(data) < 2 {
			return
		}
		lit = dlit - CaseBit
		hdrlen = 2
		bodylen = int(data[1])
	case dlit >= 'A' && dlit <= 'Z':
		if len(data) < 5 {
			return
		}
		bl := binary.LittleEndian.Uint32(data[1:5])
		if bl > 0x7fffffff {
			lit = '-'
			return
		}
		lit = dlit
		bodylen = int(bl)
		hdrlen = 5
	default:
		lit = '-'
	}
	return
}

// AppendHeader appends a header for a body of bodylen bytes.
func AppendHeader(into []byte, lit byte, bodylen int) (ret []byte) {
	biglit := lit &^ CaseBit
	if biglit < 'A' || biglit > 'Z' {
		panic("TLV record type is A..Z")
	}
	if bodylen < 10 && (lit&CaseBit) != 0 {
		ret = append(into, byte('0'+bodylen))
	} else if bodylen > 0xff {
		if bodylen > 0x7fffffff {
			panic("oversized TLV record")
		}
		ret = append(into, biglit)
		ret = binary.LittleEndian.AppendUint32(ret, uint32(bodylen))
	} else {
		ret = append(into, biglit|CaseBit, byte(bodylen))
	}
	return ret
}

// Append appends a complete record made of the concatenated body parts.
func Append(into []byte, lit byte, body ...[]byte) []byte {
	res := AppendHeader(into, lit, TotalLen(body))
	for _, b := range body {
		res = append(res, b...)
	}
	return res
}

// Record creates a standalone record.
func Record(lit byte, body ...[]byte) []byte {
	total := TotalLen(body)
	return Append(make([]byte, 0, total+5), lit, body...)
}

// TakeWary extracts the body of a lit record from untrusted data.
func TakeWary(lit byte, data []byte) (body, rest []byte, err error) {
	flit, hdrlen, bodylen := ProbeHeader(data)
	if flit == 0 || hdrlen+bodylen > len(data) {
		return nil, data, ErrIncomplete
	}
	if flit != lit && flit != '0' {
		return nil, nil, ErrBadRecord
	}
	return data[hdrlen : hdrlen+bodylen], data[hdrlen+bodylen:], nil
}

func TotalLen(inputs [][]byte) (sum int) {
	for _, input := range inputs {
		sum += len(input)
	}
	return
}

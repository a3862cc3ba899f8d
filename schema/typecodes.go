package schema

import "strconv"

// TypeCode is the declared type of a field as written to the wire.
type TypeCode int32

const (
	TypeByte         TypeCode = 1
	TypeShort        TypeCode = 2
	TypeInt          TypeCode = 3
	TypeLong         TypeCode = 4
	TypeFloat        TypeCode = 5
	TypeDouble       TypeCode = 6
	TypeChar         TypeCode = 7
	TypeBool         TypeCode = 8
	TypeString       TypeCode = 9
	TypeUUID         TypeCode = 10
	TypeDate         TypeCode = 11
	TypeArrayByte    TypeCode = 12
	TypeArrayShort   TypeCode = 13
	TypeArrayInt     TypeCode = 14
	TypeArrayLong    TypeCode = 15
	TypeArrayFloat   TypeCode = 16
	TypeArrayDouble  TypeCode = 17
	TypeArrayChar    TypeCode = 18
	TypeArrayBool    TypeCode = 19
	TypeArrayString  TypeCode = 20
	TypeArrayUUID    TypeCode = 21
	TypeArrayDate    TypeCode = 22
	TypeArray        TypeCode = 23
	TypeCollection   TypeCode = 24
	TypeMap          TypeCode = 25
	TypeBinary       TypeCode = 27
	TypeEnum         TypeCode = 28
	TypeArrayEnum    TypeCode = 29
	TypeDecimal      TypeCode = 30
	TypeArrayDecimal TypeCode = 31
	TypeTimestamp    TypeCode = 33
	TypeArrayStamp   TypeCode = 34
	TypeTime         TypeCode = 36
	TypeArrayTime    TypeCode = 37
	TypeObject       TypeCode = 103
)

var typeNames = map[TypeCode]string{
	TypeByte:         "byte",
	TypeShort:        "short",
	TypeInt:          "int",
	TypeLong:         "long",
	TypeFloat:        "float",
	TypeDouble:       "double",
	TypeChar:         "char",
	TypeBool:         "bool",
	TypeString:       "string",
	TypeUUID:         "uuid",
	TypeDate:         "date",
	TypeArrayByte:    "byte[]",
	TypeArrayShort:   "short[]",
	TypeArrayInt:     "int[]",
	TypeArrayLong:    "long[]",
	TypeArrayFloat:   "float[]",
	TypeArrayDouble:  "double[]",
	TypeArrayChar:    "char[]",
	TypeArrayBool:    "bool[]",
	TypeArrayString:  "string[]",
	TypeArrayUUID:    "uuid[]",
	TypeArrayDate:    "date[]",
	TypeArray:        "object[]",
	TypeCollection:   "collection",
	TypeMap:          "map",
	TypeBinary:       "binary",
	TypeEnum:         "enum",
	TypeArrayEnum:    "enum[]",
	TypeDecimal:      "decimal",
	TypeArrayDecimal: "decimal[]",
	TypeTimestamp:    "timestamp",
	TypeArrayStamp:   "timestamp[]",
	TypeTime:         "time",
	TypeArrayTime:    "time[]",
	TypeObject:       "object",
}

// Valid reports whether c is one of the known codes.
func (c TypeCode) Valid() bool {
	_, ok := typeNames[c]
	return ok
}

func (c TypeCode) String() string {
	if name, ok := typeNames[c]; ok {
		return name
	}
	return "type#" + strconv.Itoa(int(c))
}

// ParseTypeCode accepts a type name as printed by String or a bare number.
func ParseTypeCode(s string) (TypeCode, bool) {
	for code, name := range typeNames {
		if name == s {
			return code, true
		}
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || !TypeCode(n).Valid() {
		return 0, false
	}
	return TypeCode(n), true
}

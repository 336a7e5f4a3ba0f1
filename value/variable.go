package value

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// MaxComponents is the largest component count a single variable holds
// (a 4x4 matrix, or sixteen 64-bit scalars).
const MaxComponents = 16

const maxBytes = MaxComponents * 8

// ShaderVariable is a typed scalar, vector, matrix or aggregate value.
//
// The zero value is an unnamed, unknown-typed scalar holding zero.
type ShaderVariable struct {
	Name    string
	Type    VarType
	Rows    uint8
	Columns uint8

	// RowMajor records matrix layout for display. Storage is always in
	// component order.
	RowMajor bool

	// Members holds struct fields or array elements. When non-empty the
	// lane store is unused.
	Members []ShaderVariable

	raw [maxBytes]byte
}

// NewVariable returns a zeroed variable of the given shape.
func NewVariable(name string, t VarType, rows, cols int) ShaderVariable {
	return ShaderVariable{Name: name, Type: t, Rows: uint8(rows), Columns: uint8(cols)}
}

// Float4 returns a 4-component float vector.
func Float4(name string, x, y, z, w float32) ShaderVariable {
	return Floats(name, x, y, z, w)
}

// UInt4 returns a 4-component uint vector.
func UInt4(name string, x, y, z, w uint32) ShaderVariable {
	return UInts(name, x, y, z, w)
}

// SInt4 returns a 4-component int vector.
func SInt4(name string, x, y, z, w int32) ShaderVariable {
	v := NewVariable(name, TypeSInt, 1, 4)
	v.SetS32(0, x)
	v.SetS32(1, y)
	v.SetS32(2, z)
	v.SetS32(3, w)
	return v
}

// Floats returns a float vector with one component per argument.
func Floats(name string, comps ...float32) ShaderVariable {
	v := NewVariable(name, TypeFloat, 1, len(comps))
	for i, f := range comps {
		v.SetF32(i, f)
	}
	return v
}

// UInts returns a uint vector with one component per argument.
func UInts(name string, comps ...uint32) ShaderVariable {
	v := NewVariable(name, TypeUInt, 1, len(comps))
	for i, u := range comps {
		v.SetU32(i, u)
	}
	return v
}

// Doubles returns a double vector with one component per argument.
func Doubles(name string, comps ...float64) ShaderVariable {
	v := NewVariable(name, TypeDouble, 1, len(comps))
	for i, d := range comps {
		v.SetF64(i, d)
	}
	return v
}

// Struct returns an aggregate with the given members.
func Struct(name string, members ...ShaderVariable) ShaderVariable {
	return ShaderVariable{Name: name, Type: TypeStruct, Rows: 0, Columns: 0, Members: members}
}

// Count returns rows*columns, treating zero rows as a single row.
func (v ShaderVariable) Count() int {
	rows := int(v.Rows)
	if rows == 0 {
		rows = 1
	}
	return rows * int(v.Columns)
}

// IsStruct reports whether the variable is an aggregate.
func (v ShaderVariable) IsStruct() bool {
	return v.Type == TypeStruct || len(v.Members) > 0
}

func (v ShaderVariable) inRange(i, size int) bool {
	return i >= 0 && (i+1)*size <= maxBytes
}

// U32 returns 32-bit lane i.
func (v ShaderVariable) U32(i int) uint32 {
	if !v.inRange(i, 4) {
		return 0
	}
	return binary.LittleEndian.Uint32(v.raw[i*4:])
}

// SetU32 stores 32-bit lane i.
func (v *ShaderVariable) SetU32(i int, x uint32) {
	if v.inRange(i, 4) {
		binary.LittleEndian.PutUint32(v.raw[i*4:], x)
	}
}

// S32 returns lane i as a signed integer.
func (v ShaderVariable) S32(i int) int32 { return int32(v.U32(i)) }

// SetS32 stores a signed integer into lane i.
func (v *ShaderVariable) SetS32(i int, x int32) { v.SetU32(i, uint32(x)) }

// F32 returns lane i as a float.
func (v ShaderVariable) F32(i int) float32 { return math.Float32frombits(v.U32(i)) }

// SetF32 stores a float into lane i.
func (v *ShaderVariable) SetF32(i int, x float32) { v.SetU32(i, math.Float32bits(x)) }

// U64 returns 64-bit component i (lanes 2i and 2i+1).
func (v ShaderVariable) U64(i int) uint64 {
	if !v.inRange(i, 8) {
		return 0
	}
	return binary.LittleEndian.Uint64(v.raw[i*8:])
}

// SetU64 stores 64-bit component i.
func (v *ShaderVariable) SetU64(i int, x uint64) {
	if v.inRange(i, 8) {
		binary.LittleEndian.PutUint64(v.raw[i*8:], x)
	}
}

// S64 returns 64-bit component i as a signed integer.
func (v ShaderVariable) S64(i int) int64 { return int64(v.U64(i)) }

// SetS64 stores a signed 64-bit integer into component i.
func (v *ShaderVariable) SetS64(i int, x int64) { v.SetU64(i, uint64(x)) }

// F64 returns 64-bit component i as a double.
func (v ShaderVariable) F64(i int) float64 { return math.Float64frombits(v.U64(i)) }

// SetF64 stores a double into component i.
func (v *ShaderVariable) SetF64(i int, x float64) { v.SetU64(i, math.Float64bits(x)) }

// U16 returns 16-bit component i.
func (v ShaderVariable) U16(i int) uint16 {
	if !v.inRange(i, 2) {
		return 0
	}
	return binary.LittleEndian.Uint16(v.raw[i*2:])
}

// SetU16 stores 16-bit component i.
func (v *ShaderVariable) SetU16(i int, x uint16) {
	if v.inRange(i, 2) {
		binary.LittleEndian.PutUint16(v.raw[i*2:], x)
	}
}

// F16 returns half component i widened to float32.
func (v ShaderVariable) F16(i int) float32 { return HalfToFloat32(v.U16(i)) }

// SetF16 narrows x to half precision and stores it in component i.
func (v *ShaderVariable) SetF16(i int, x float32) { v.SetU16(i, Float32ToHalf(x)) }

// U8 returns 8-bit component i.
func (v ShaderVariable) U8(i int) uint8 {
	if !v.inRange(i, 1) {
		return 0
	}
	return v.raw[i]
}

// SetU8 stores 8-bit component i.
func (v *ShaderVariable) SetU8(i int, x uint8) {
	if v.inRange(i, 1) {
		v.raw[i] = x
	}
}

// Bytes returns a copy of the bytes backing the used components.
func (v *ShaderVariable) Bytes() []byte {
	n := v.Count() * v.Type.ByteSize()
	if n > maxBytes {
		n = maxBytes
	}
	return slices.Clone(v.raw[:n])
}

// SetBytes overwrites the lane store starting at byte 0.
func (v *ShaderVariable) SetBytes(b []byte) {
	copy(v.raw[:], b)
}

// Splat copies lane src into every one of the first n lanes.
func (v *ShaderVariable) Splat(src, n int) {
	x := v.U32(src)
	for i := 0; i < n; i++ {
		v.SetU32(i, x)
	}
}

// Bitcast returns the variable reinterpreted as type t. The bytes are
// unchanged; the column count is rescaled so the total byte size is
// preserved and the result is a single row.
func (v ShaderVariable) Bitcast(t VarType) ShaderVariable {
	oldSize := v.Type.ByteSize()
	newSize := t.ByteSize()
	if oldSize == 0 || newSize == 0 || v.IsStruct() {
		return v
	}
	total := v.Count() * oldSize
	v.Type = t
	v.Rows = 1
	v.Columns = uint8(total / newSize)
	return v
}

// Clone returns a deep copy, including members.
func (v ShaderVariable) Clone() ShaderVariable {
	c := v
	if len(v.Members) > 0 {
		c.Members = make([]ShaderVariable, len(v.Members))
		for i := range v.Members {
			c.Members[i] = v.Members[i].Clone()
		}
	}
	return c
}

// Equal reports whether two variables have the same tag, shape and
// component bits. Names are ignored.
func (v ShaderVariable) Equal(o *ShaderVariable) bool {
	if v.Type != o.Type || v.Rows != o.Rows || v.Columns != o.Columns || len(v.Members) != len(o.Members) {
		return false
	}
	for i := range v.Members {
		if !v.Members[i].Equal(&o.Members[i]) {
			return false
		}
	}
	n := v.Count() * v.Type.ByteSize()
	if n > maxBytes {
		n = maxBytes
	}
	return slices.Equal(v.raw[:n], o.raw[:n])
}

// FindMember returns the member with the given name, or nil.
func (v *ShaderVariable) FindMember(name string) *ShaderVariable {
	for i := range v.Members {
		if v.Members[i].Name == name {
			return &v.Members[i]
		}
	}
	return nil
}

// FormatComponent renders component i according to the type tag.
func (v ShaderVariable) FormatComponent(i int) string {
	switch v.Type {
	case TypeFloat:
		return strconv.FormatFloat(float64(v.F32(i)), 'g', -1, 32)
	case TypeDouble:
		return strconv.FormatFloat(v.F64(i), 'g', -1, 64)
	case TypeHalf:
		return strconv.FormatFloat(float64(v.F16(i)), 'g', -1, 32)
	case TypeSInt:
		return strconv.FormatInt(int64(v.S32(i)), 10)
	case TypeSLong:
		return strconv.FormatInt(v.S64(i), 10)
	case TypeULong, TypePointer:
		return strconv.FormatUint(v.U64(i), 10)
	case TypeSShort:
		return strconv.FormatInt(int64(int16(v.U16(i))), 10)
	case TypeUShort:
		return strconv.FormatUint(uint64(v.U16(i)), 10)
	case TypeSByte:
		return strconv.FormatInt(int64(int8(v.U8(i))), 10)
	case TypeUByte:
		return strconv.FormatUint(uint64(v.U8(i)), 10)
	case TypeBool:
		return strconv.FormatBool(v.U32(i) != 0)
	}
	return strconv.FormatUint(uint64(v.U32(i)), 10)
}

// String renders the variable as "name = type{a, b, ...}".
func (v ShaderVariable) String() string {
	var sb strings.Builder
	if v.Name != "" {
		sb.WriteString(v.Name)
		sb.WriteString(" = ")
	}
	if v.IsStruct() {
		sb.WriteByte('{')
		for i := range v.Members {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(v.Members[i].String())
		}
		sb.WriteByte('}')
		return sb.String()
	}
	fmt.Fprintf(&sb, "%s", v.Type)
	if v.Columns > 1 {
		fmt.Fprintf(&sb, "%d", v.Columns)
	}
	if v.Rows > 1 {
		fmt.Fprintf(&sb, "x%d", v.Rows)
	}
	sb.WriteByte('{')
	for i := 0; i < v.Count(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.FormatComponent(i))
	}
	sb.WriteByte('}')
	return sb.String()
}

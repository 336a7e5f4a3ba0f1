package value

// VarType is the numeric type tag of a ShaderVariable.
type VarType uint8

const (
	TypeUnknown VarType = iota
	TypeFloat
	TypeDouble
	TypeHalf
	TypeSInt
	TypeUInt
	TypeSShort
	TypeUShort
	TypeSLong
	TypeULong
	TypeSByte
	TypeUByte
	TypeBool
	TypePointer
	TypeReadOnlyResource
	TypeReadWriteResource
	TypeSampler
	TypeStruct
)

var typeNames = [...]string{
	TypeUnknown:           "unknown",
	TypeFloat:             "float",
	TypeDouble:            "double",
	TypeHalf:              "half",
	TypeSInt:              "int",
	TypeUInt:              "uint",
	TypeSShort:            "short",
	TypeUShort:            "ushort",
	TypeSLong:             "long",
	TypeULong:             "ulong",
	TypeSByte:             "sbyte",
	TypeUByte:             "ubyte",
	TypeBool:              "bool",
	TypePointer:           "pointer",
	TypeReadOnlyResource:  "resource",
	TypeReadWriteResource: "rwresource",
	TypeSampler:           "sampler",
	TypeStruct:            "struct",
}

// String returns the HLSL-style type name.
func (t VarType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// LookupType parses a type name produced by String.
func LookupType(name string) (VarType, bool) {
	for i, n := range typeNames {
		if n == name {
			return VarType(i), true
		}
	}
	return TypeUnknown, false
}

// ByteSize returns the storage size of one component in bytes. Opaque
// handle types report 4 (a binding index), struct reports 0.
func (t VarType) ByteSize() int {
	switch t {
	case TypeDouble, TypeSLong, TypeULong, TypePointer:
		return 8
	case TypeHalf, TypeSShort, TypeUShort:
		return 2
	case TypeSByte, TypeUByte:
		return 1
	case TypeStruct:
		return 0
	}
	return 4
}

// IsFloat reports whether the type is a floating point type.
func (t VarType) IsFloat() bool {
	return t == TypeFloat || t == TypeDouble || t == TypeHalf
}

// IsSigned reports whether the type is a signed integer type.
func (t VarType) IsSigned() bool {
	return t == TypeSInt || t == TypeSShort || t == TypeSLong || t == TypeSByte
}

// IsInteger reports whether the type is an integer type, signed or not.
func (t VarType) IsInteger() bool {
	switch t {
	case TypeSInt, TypeUInt, TypeSShort, TypeUShort, TypeSLong, TypeULong, TypeSByte, TypeUByte:
		return true
	}
	return false
}

// Is64 reports whether components occupy two 32-bit lanes.
func (t VarType) Is64() bool {
	return t.ByteSize() == 8
}

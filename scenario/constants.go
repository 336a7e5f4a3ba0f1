package scenario

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gogpu/shaderdbg/refapi"
)

// ConstantSpec is one typed constant buffer member. Members are laid out
// in order with HLSL packing, so offsets need not be written by hand.
type ConstantSpec struct {
	Name string `yaml:"name"`

	// Type is a scalar or vector type such as float, uint3 or double2.
	Type string `yaml:"type"`

	// Elements makes the member an array; each element starts a register.
	Elements int `yaml:"elements,omitempty"`

	// Value lists every component in order; missing components are zero.
	Value []string `yaml:"value"`
}

var constantKinds = map[string]reflect.Type{
	"float":  reflect.TypeOf(float32(0)),
	"int":    reflect.TypeOf(int32(0)),
	"uint":   reflect.TypeOf(uint32(0)),
	"bool":   reflect.TypeOf(false),
	"double": reflect.TypeOf(float64(0)),
}

// goType maps the member to a Go type that packs the same way: a vector
// is a short array and an array of elements an array of those.
func (c *ConstantSpec) goType() (reflect.Type, error) {
	base := strings.TrimRight(c.Type, "1234")
	scalar, ok := constantKinds[base]
	if !ok {
		return nil, fmt.Errorf("constant %s: unknown type %q", c.Name, c.Type)
	}
	typ := scalar
	if width := c.Type[len(base):]; width != "" {
		n, err := strconv.Atoi(width)
		if err != nil || n < 1 || n > 4 {
			return nil, fmt.Errorf("constant %s: bad vector width in %q", c.Name, c.Type)
		}
		if n > 1 {
			typ = reflect.ArrayOf(n, scalar)
		}
	}
	if c.Elements < 0 {
		return nil, fmt.Errorf("constant %s: negative element count", c.Name)
	}
	if c.Elements > 0 {
		// a one-component element would otherwise pack as a vector
		if typ == scalar {
			typ = reflect.ArrayOf(1, scalar)
		}
		typ = reflect.ArrayOf(c.Elements, typ)
	}
	return typ, nil
}

// fill stores vals into the scalars of v in order and returns the values
// left over.
func fill(v reflect.Value, vals []string) ([]string, error) {
	if v.Kind() == reflect.Array {
		var err error
		for i := 0; i < v.Len(); i++ {
			if vals, err = fill(v.Index(i), vals); err != nil {
				return nil, err
			}
		}
		return vals, nil
	}
	if len(vals) == 0 {
		return nil, nil
	}
	s := strings.TrimSpace(vals[0])
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return nil, err
		}
		v.SetFloat(f)
	case reflect.Int32:
		i, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return nil, err
		}
		v.SetInt(i)
	case reflect.Uint32:
		u, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return nil, err
		}
		v.SetUint(u)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		v.SetBool(b)
	}
	return vals[1:], nil
}

// packConstants builds a struct type from the members and packs one
// instance of it.
func packConstants(consts []ConstantSpec) ([]byte, error) {
	fields := make([]reflect.StructField, len(consts))
	for i := range consts {
		typ, err := consts[i].goType()
		if err != nil {
			return nil, err
		}
		fields[i] = reflect.StructField{Name: fmt.Sprintf("F%d", i), Type: typ}
	}
	ptr := reflect.New(reflect.StructOf(fields))
	for i := range consts {
		rest, err := fill(ptr.Elem().Field(i), consts[i].Value)
		if err != nil {
			return nil, fmt.Errorf("constant %s: %w", consts[i].Name, err)
		}
		if len(rest) > 0 {
			return nil, fmt.Errorf("constant %s: %d values too many for %s", consts[i].Name, len(rest), consts[i].Type)
		}
	}
	return refapi.PackConstants(ptr.Interface())
}

// Bytes returns the buffer contents, either the raw words or the packed
// typed constants.
func (b *BufferSpec) Bytes() ([]byte, error) {
	if len(b.Constants) == 0 {
		return b.Data.Bytes(), nil
	}
	if len(b.Data) > 0 {
		return nil, fmt.Errorf("constant buffer %d: data and constants are exclusive", b.Register)
	}
	return packConstants(b.Constants)
}

package refapi

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"sync"
	"unsafe"

	"github.com/modern-go/reflect2"

	"github.com/gogpu/shaderdbg/value"
)

// packField copies one scalar from the Go value into the packed buffer.
type packField struct {
	dst  int
	src  uintptr
	kind reflect.Kind
}

type packLayout struct {
	fields []packField
	size   int
}

var packLayouts sync.Map // rtype -> *packLayout

// PackConstants lays out the struct pointed to by v with HLSL constant
// buffer packing and returns its bytes, padded to whole 16-byte registers.
//
// float32, int32, uint32 and bool fields take four bytes, float64 takes
// eight. Arrays of one to four scalars are vectors and may not straddle a
// register. Other arrays start each element on a register, and nested
// structs start on a register and are followed by a new one. Fields
// tagged `hlsl:"-"` are skipped.
func PackConstants(v any) ([]byte, error) {
	typ := reflect2.TypeOf(v)
	if typ == nil || typ.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("PackConstants needs a pointer to a struct, got %T", v)
	}
	elem := typ.(reflect2.PtrType).Elem()
	if elem.Kind() != reflect.Struct {
		return nil, fmt.Errorf("PackConstants needs a pointer to a struct, got %T", v)
	}
	ptr := reflect2.PtrOf(v)
	if ptr == nil {
		return nil, fmt.Errorf("PackConstants of nil %T", v)
	}

	layout, err := layoutOf(elem)
	if err != nil {
		return nil, err
	}
	out := make([]byte, layout.size)
	for _, f := range layout.fields {
		p := unsafe.Add(ptr, f.src)
		switch f.kind {
		case reflect.Float32:
			binary.LittleEndian.PutUint32(out[f.dst:], math.Float32bits(*(*float32)(p)))
		case reflect.Int32:
			binary.LittleEndian.PutUint32(out[f.dst:], uint32(*(*int32)(p)))
		case reflect.Uint32:
			binary.LittleEndian.PutUint32(out[f.dst:], *(*uint32)(p))
		case reflect.Bool:
			if *(*bool)(p) {
				binary.LittleEndian.PutUint32(out[f.dst:], 1)
			}
		case reflect.Float64:
			binary.LittleEndian.PutUint64(out[f.dst:], math.Float64bits(*(*float64)(p)))
		}
	}
	return out, nil
}

func layoutOf(typ reflect2.Type) (*packLayout, error) {
	key := typ.RType()
	if l, ok := packLayouts.Load(key); ok {
		return l.(*packLayout), nil
	}
	l := &packLayout{}
	end, err := l.placeStruct(typ.(reflect2.StructType), 0, 0)
	if err != nil {
		return nil, err
	}
	l.size = value.AlignUp(end, 16)
	packLayouts.Store(key, l)
	return l, nil
}

func scalarSize(k reflect.Kind) int {
	switch k {
	case reflect.Float32, reflect.Int32, reflect.Uint32, reflect.Bool:
		return 4
	case reflect.Float64:
		return 8
	}
	return 0
}

// fit moves offset to the next register when size bytes would cross one.
func fit(offset, size int) int {
	if offset%16+size > 16 {
		return value.AlignUp(offset, 16)
	}
	return offset
}

func (l *packLayout) placeStruct(st reflect2.StructType, src uintptr, offset int) (int, error) {
	offset = value.AlignUp(offset, 16)
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Tag().Get("hlsl") == "-" {
			continue
		}
		var err error
		offset, err = l.place(f.Type(), src+f.Offset(), offset)
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", f.Name(), err)
		}
	}
	return offset, nil
}

func (l *packLayout) place(typ reflect2.Type, src uintptr, offset int) (int, error) {
	kind := typ.Kind()
	if n := scalarSize(kind); n > 0 {
		offset = fit(offset, n)
		l.fields = append(l.fields, packField{dst: offset, src: src, kind: kind})
		return offset + n, nil
	}

	switch kind {
	case reflect.Array:
		at := typ.(reflect2.ArrayType)
		elem := at.Elem()
		stride := elem.Type1().Size()
		if n := scalarSize(elem.Kind()); n > 0 && at.Len() <= 4 && n*at.Len() <= 16 {
			offset = fit(offset, n*at.Len())
			for i := 0; i < at.Len(); i++ {
				l.fields = append(l.fields, packField{dst: offset, src: src + uintptr(i)*stride, kind: elem.Kind()})
				offset += n
			}
			return offset, nil
		}
		for i := 0; i < at.Len(); i++ {
			var err error
			offset, err = l.place(elem, src+uintptr(i)*stride, value.AlignUp(offset, 16))
			if err != nil {
				return 0, err
			}
		}
		return offset, nil

	case reflect.Struct:
		end, err := l.placeStruct(typ.(reflect2.StructType), src, offset)
		if err != nil {
			return 0, err
		}
		return value.AlignUp(end, 16), nil
	}
	return 0, fmt.Errorf("type %s cannot be packed", typ)
}

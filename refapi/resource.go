package refapi

import (
	"github.com/gogpu/shaderdbg/debugger"
	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// Resource is one buffer or texture held by the host.
type Resource struct {
	Dim    dxbc.ResourceDimension
	Format value.TexelFormat

	// Buffer contents. NumElements counts Format elements; for raw
	// buffers that is dwords.
	Data          []byte
	FirstElement  uint32
	NumElements   uint32
	HiddenCounter uint32

	// Texture contents. Mips[0] is the full resolution level. Each level
	// is tightly packed, x fastest, then y, then the slice. Depth is the
	// array size for array textures and the depth of a 3D texture.
	Width, Height, Depth uint32
	Mips                 [][]byte
	SampleCount          uint32
}

// Buffer returns a typed buffer resource over data.
func Buffer(format value.TexelFormat, data []byte) *Resource {
	return &Resource{
		Dim:         dxbc.DimBuffer,
		Format:      format,
		Data:        data,
		NumElements: uint32(len(data) / format.ElementSize()),
	}
}

// RawBuffer returns a byte address buffer over data.
func RawBuffer(data []byte) *Resource {
	r := Buffer(value.TexelFormat{ByteWidth: 4, NumComps: 1, Kind: value.KindUInt}, data)
	r.Dim = dxbc.DimRawBuffer
	return r
}

// StructuredBuffer returns a structured buffer of stride-byte elements.
func StructuredBuffer(stride int, data []byte) *Resource {
	r := Buffer(value.TexelFormat{ByteWidth: 4, NumComps: 1, Kind: value.KindUInt, Stride: stride}, data)
	r.Dim = dxbc.DimStructuredBuffer
	return r
}

// Texture2D returns a 2D texture. Each entry of levels is one mip.
func Texture2D(format value.TexelFormat, width, height uint32, levels ...[]byte) *Resource {
	return &Resource{
		Dim:    dxbc.DimTexture2D,
		Format: format,
		Width:  width,
		Height: height,
		Depth:  1,
		Mips:   levels,
	}
}

// Texture2DArray returns a 2D texture array of n slices.
func Texture2DArray(format value.TexelFormat, width, height, n uint32, levels ...[]byte) *Resource {
	r := Texture2D(format, width, height, levels...)
	r.Dim = dxbc.DimTexture2DArray
	r.Depth = n
	return r
}

// Texture3D returns a volume texture.
func Texture3D(format value.TexelFormat, width, height, depth uint32, levels ...[]byte) *Resource {
	r := Texture2D(format, width, height, levels...)
	r.Dim = dxbc.DimTexture3D
	r.Depth = depth
	return r
}

// IsTexture reports whether the resource is addressed by texel.
func (r *Resource) IsTexture() bool {
	return !r.Dim.IsBuffer() && r.Dim != dxbc.DimUnknown
}

// levelSize returns the dimensions of mip level. Array sizes do not shrink.
func (r *Resource) levelSize(level int) (w, h, d uint32) {
	w = max(1, r.Width>>level)
	h = max(1, r.Height>>level)
	d = max(1, r.Depth)
	switch r.Dim {
	case dxbc.DimTexture1D, dxbc.DimTexture1DArray:
		h = 1
		if r.Dim == dxbc.DimTexture1D {
			d = 1
		}
	case dxbc.DimTexture3D:
		d = max(1, r.Depth>>level)
	case dxbc.DimTexture2D, dxbc.DimTexture2DMS:
		d = 1
	}
	return w, h, d
}

// texel returns the bytes of texel (x, y, z) in level, or nil when out of
// range.
func (r *Resource) texel(level int, x, y, z uint32) []byte {
	if level < 0 || level >= len(r.Mips) {
		return nil
	}
	w, h, d := r.levelSize(level)
	if x >= w || y >= h || z >= d {
		return nil
	}
	es := uint32(r.Format.ElementSize())
	off := ((z*h+y)*w + x) * es
	data := r.Mips[level]
	if int(off+es) > len(data) {
		return nil
	}
	return data[off : off+es]
}

// view is the debugger's copy of the binding. Buffer data is shared so
// stores are visible to the host.
func (r *Resource) view() *debugger.ResourceData {
	d := &debugger.ResourceData{
		Format:        r.Format,
		FirstElement:  r.FirstElement,
		NumElements:   r.NumElements,
		HiddenCounter: r.HiddenCounter,
	}
	if !r.IsTexture() {
		d.Data = r.Data
		return d
	}
	d.IsTexture = true
	if len(r.Mips) > 0 {
		d.Data = r.Mips[0]
	}
	w, h, _ := r.levelSize(0)
	es := uint32(r.Format.ElementSize())
	d.RowPitch = w * es
	d.DepthPitch = w * h * es
	return d
}

// dimensionality is the number of size components resinfo reports.
func dimensionality(dim dxbc.ResourceDimension) int {
	switch dim {
	case dxbc.DimBuffer, dxbc.DimRawBuffer, dxbc.DimStructuredBuffer, dxbc.DimTexture1D:
		return 1
	case dxbc.DimTexture1DArray, dxbc.DimTexture2D, dxbc.DimTexture2DMS:
		return 2
	case dxbc.DimTexture2DArray, dxbc.DimTexture2DMSArray, dxbc.DimTexture3D,
		dxbc.DimTextureCube, dxbc.DimTextureCubeArray:
		return 3
	}
	return 0
}

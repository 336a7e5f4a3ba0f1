package debugger

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/shaderdbg/dxbc"
	"github.com/gogpu/shaderdbg/value"
)

// FlattenConstantBuffer splits the contents of constant buffer id into
// float4 registers named "cb<id>[<reg>]". When a layout is given, each
// register is annotated with the variable that starts in it, and matrix
// rows or columns after the first are annotated with their index.
func FlattenConstantBuffer(id uint32, layout *dxbc.CBuffer, data []byte) value.ShaderVariable {
	size := uint32(len(data))
	if layout != nil && layout.Size > size {
		size = layout.Size
	}
	numRegs := value.AlignUp(size, 16) / 16

	names := make(map[uint32]string)
	if layout != nil {
		annotate(names, layout.Variables, 0, "")
	}

	regs := make([]value.ShaderVariable, numRegs)
	for r := uint32(0); r < numRegs; r++ {
		name := fmt.Sprintf("cb%d[%d]", id, r)
		if n, ok := names[r]; ok {
			name = fmt.Sprintf("%s (%s)", name, n)
		}
		v := value.NewVariable(name, value.TypeFloat, 1, 4)
		for c := uint32(0); c < 4; c++ {
			off := r*16 + c*4
			if off+4 <= uint32(len(data)) {
				v.SetU32(int(c), binary.LittleEndian.Uint32(data[off:]))
			}
		}
		regs[r] = v
	}

	return value.Struct(fmt.Sprintf("cb%d", id), regs...)
}

// annotate records a display name for the first register of every
// variable. Matrices span one register per row (row major) or column.
func annotate(names map[uint32]string, vars []dxbc.CBufferVariable, base uint32, prefix string) {
	for i := range vars {
		v := &vars[i]
		off := base + v.Offset
		full := prefix + v.Name
		reg := off / 16

		if _, taken := names[reg]; !taken || off%16 == 0 {
			names[reg] = full
		}

		switch v.Type.Class {
		case dxbc.ClassStruct:
			annotate(names, v.Type.Members, off, full+".")
		case dxbc.ClassMatrixRows, dxbc.ClassMatrixColumns:
			n, label := v.Type.Cols, "col"
			if v.Type.RowMajor() {
				n, label = v.Type.Rows, "row"
			}
			elements := max(1, v.Type.Elements)
			for e := uint32(0); e < elements; e++ {
				for k := uint32(0); k < n; k++ {
					if e == 0 && k == 0 {
						continue
					}
					names[reg+e*n+k] = fmt.Sprintf("%s.%s%d", full, label, k)
					if elements > 1 {
						names[reg+e*n+k] = fmt.Sprintf("%s[%d].%s%d", full, e, label, k)
					}
				}
			}
		}
	}
}

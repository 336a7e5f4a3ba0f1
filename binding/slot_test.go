// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package binding

import (
	"sort"
	"testing"

	"github.com/gogpu/shaderdbg/dxbc"
)

func TestSlot_Less(t *testing.T) {
	slots := []Slot{
		{Space: 1, Register: 0},
		{Space: 0, Register: 7},
		{Space: 0, Register: 2},
		{Space: 2, Register: 1},
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Less(slots[j]) })

	want := []Slot{{0, 2}, {0, 7}, {1, 0}, {2, 1}}
	for i := range want {
		if slots[i] != want[i] {
			t.Errorf("slots[%d] = %v, want %v", i, slots[i], want[i])
		}
	}
}

func TestSlot_Compare(t *testing.T) {
	a, b := Slot{Space: 0, Register: 9}, Slot{Space: 1, Register: 0}
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Errorf("Compare(%v, %v) inconsistent with Less", a, b)
	}
}

func TestSlot_MapKey(t *testing.T) {
	m := map[Slot]int{{Space: 0, Register: 3}: 1}
	if m[Slot{Space: 0, Register: 3}] != 1 {
		t.Error("equal slots should hash equally")
	}
	if _, ok := m[Slot{Space: 1, Register: 3}]; ok {
		t.Error("space must participate in equality")
	}
}

func TestSlot_String(t *testing.T) {
	if got := (Slot{Space: 2, Register: 9}).String(); got != "space2:9" {
		t.Errorf("String() = %q, want %q", got, "space2:9")
	}
}

func TestRegisterType_String(t *testing.T) {
	tests := []struct {
		rt   RegisterType
		want string
	}{
		{RegisterTypeB, "b"},
		{RegisterTypeT, "t"},
		{RegisterTypeS, "s"},
		{RegisterTypeU, "u"},
		{RegisterType(99), "?"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.rt.String(); got != tt.want {
				t.Errorf("RegisterType.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegisterTypeFor(t *testing.T) {
	tests := []struct {
		class dxbc.OperandType
		want  RegisterType
		ok    bool
	}{
		{dxbc.OperandConstantBuffer, RegisterTypeB, true},
		{dxbc.OperandResource, RegisterTypeT, true},
		{dxbc.OperandSampler, RegisterTypeS, true},
		{dxbc.OperandUAV, RegisterTypeU, true},
		{dxbc.OperandTemp, 0, false},
		{dxbc.OperandThreadGroupSharedMemory, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.class.String(), func(t *testing.T) {
			got, ok := RegisterTypeFor(tt.class)
			if ok != tt.ok || got != tt.want {
				t.Errorf("RegisterTypeFor(%s) = %v, %v; want %v, %v", tt.class, got, ok, tt.want, tt.ok)
			}
			if ok && got.OperandType() != tt.class {
				t.Errorf("OperandType() = %s, want %s", got.OperandType(), tt.class)
			}
		})
	}
}

// Package scenario loads self-contained debug scenarios from YAML.
//
// A scenario bundles a program listing in disassembly syntax, the
// reflection data the listing cannot express (signatures, constant buffer
// layouts, function parameters), the contents of every bound resource, the
// invocation to debug and the expected results. Scenarios drive the
// package tests and the shaderdbg command.
//
//	name: loop sum
//	program:
//	  code: |
//	    cs_5_0
//	    dcl_temps 2
//	    dcl_thread_group 1, 1, 1
//	    mov r0.x, l(3)
//	    ret
//	expect:
//	  registers:
//	    r0: [3]
package scenario

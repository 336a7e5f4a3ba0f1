// Package debugger re-executes a decoded shader program one instruction at a
// time on the CPU and records the register changes of every step.
//
// A Debugger owns a GlobalState (lazily fetched resources, groupshared
// memory, constant blocks and the sample evaluation cache) and a workgroup
// of ThreadState lanes: four for a pixel shader quad, the thread group for
// compute, one otherwise. Lanes step in a fixed order. Each step reads neighbour values from a snapshot of
// the previous step, so derivatives are deterministic.
//
// Structured control flow is reconstructed on the fly by scanning the flat
// instruction list for matching terminators. Work the CPU cannot do with GPU
// precision (transcendentals, sampling, resource queries) is delegated to an
// APIWrapper supplied by the host.
package debugger

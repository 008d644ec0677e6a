// Package vm implements the Gert virtual machine core.
//
// This package contains:
//   - Tagged 64-bit term representation
//   - Process-wide atom interning table
//   - Per-process register file, stack and heap arena
//   - Opcode dispatch loop with process-local fault recovery
//   - Cooperative reduction-counting scheduler
package vm

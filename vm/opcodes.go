package vm

import "fmt"

// Opcode identifies a bytecode instruction. The numbering follows the
// BEAM general opcode table so loaded modules keep their original
// instruction numbers.
type Opcode uint16

const (
	OpLabel      Opcode = 1   // label(n) - code position marker, stripped at load
	OpFuncInfo   Opcode = 2   // func_info(module, function, arity)
	OpIntCodeEnd Opcode = 3   // int_code_end() - end of module code
	OpCall       Opcode = 4   // call(arity, label)
	OpCallLast   Opcode = 5   // call_last(arity, label, deallocate)
	OpCallOnly   Opcode = 6   // call_only(arity, label)
	OpReturn     Opcode = 19  // return()
	OpJump       Opcode = 61  // jump(label)
	OpMove       Opcode = 64  // move(src, dst)
	OpMakeFun2   Opcode = 103 // make_fun2(lambda_index)

	// MaxOpcode bounds the dispatch table.
	MaxOpcode Opcode = 159
)

// opInfo declares an instruction's name and fixed operand arity.
type opInfo struct {
	name  string
	arity int
}

// opTable is the genop declaration table. An instruction missing here is
// unknown to this emulator; an instruction present but without a handler
// is a known gap (FaultNotImplemented).
var opTable = map[Opcode]opInfo{
	OpLabel:      {"label", 1},
	OpFuncInfo:   {"func_info", 3},
	OpIntCodeEnd: {"int_code_end", 0},
	OpCall:       {"call", 2},
	OpCallLast:   {"call_last", 3},
	OpCallOnly:   {"call_only", 2},
	OpReturn:     {"return", 0},
	OpJump:       {"jump", 1},
	OpMove:       {"move", 2},
	OpMakeFun2:   {"make_fun2", 1},
}

// OpArity returns the declared operand count for op, or -1 if unknown.
func OpArity(op Opcode) int {
	if info, ok := opTable[op]; ok {
		return info.arity
	}
	return -1
}

// OpName returns the genop name for op.
func OpName(op Opcode) string {
	if info, ok := opTable[op]; ok {
		return info.name
	}
	return fmt.Sprintf("opcode_%d", uint16(op))
}

// String implements fmt.Stringer.
func (op Opcode) String() string { return OpName(op) }

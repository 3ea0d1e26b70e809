// Package vm implements the INTCODE virtual machine.
//
// INTCODE is the compact accumulator bytecode emitted by the classic BCPL
// compiler. The machine has a single word-addressed memory of 16-bit
// two's-complement words and four registers: the program counter, the stack
// (frame) pointer, and the A and B accumulators.
//
// # Instruction format
//
// Each instruction occupies one word, optionally followed by an operand word:
//
//	bit  15..8   7  6   5   4   3   2..0
//	     operand -  -   D   P   I   function
//
// The function codes are L (load), S (store), A (add), J (jump), T (jump if
// true), F (jump if false), K (call) and X (extended). If D is set the
// operand is the following word, otherwise it is the unsigned inline byte.
// P adds the stack pointer to the operand and I then replaces it by the word
// it addresses. That order is fixed.
//
// # Calls
//
// K treats A as the call target and the operand plus the stack pointer as the
// new frame. Targets below the program origin are primitives ("syscalls")
// whose arguments start two words into the frame. Any other target is a user
// procedure: the caller's stack pointer and return address are stored in the
// first two words of the frame.
//
// Because low memory is initialised so that word n holds n, an unset global
// n names syscall n. Library routines such as wrch are reached that way.
//
// # Memory map
//
//	0 .. Origin-1          globals
//	Origin ..  lomem       bootstrap and assembled code, then the stack
//	himem+1 .. labels-1    vectors carved by getvec
//	labels .. WordCount-1  assembler label table
//
// Package assembler loads mnemonic text into a VM. The VM itself is
// single-threaded; independent VM values share no state.
package vm

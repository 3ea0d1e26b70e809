package vm

import (
	"fmt"
	"strings"
)

// DisassembleAt decodes the instruction at a without executing it. It
// returns the instruction in assembler notation and its length in words.
// Operands are shown as encoded; frame-relative and indirect resolution is
// not applied.
func DisassembleAt(m *Memory, a Addr) (string, int) {
	if !m.InBounds(a) {
		return "<out of memory>", 0
	}
	w := m.UWord(a)
	fn := Fn(w & FnMask)

	var sb strings.Builder
	sb.WriteString(fn.String())
	if w&FlagI != 0 {
		sb.WriteByte('I')
	}
	if w&FlagP != 0 {
		sb.WriteByte('P')
	}

	n := 1
	var d int
	if w&FlagD != 0 {
		if !m.InBounds(a + 1) {
			sb.WriteString(" <truncated>")
			return sb.String(), 1
		}
		d = int(m.Word(a + 1))
		n = 2
	} else {
		d = int(w >> OperandShift)
	}

	fmt.Fprintf(&sb, " %d", d)
	if fn == FnExec && w&(FlagI|FlagP|FlagD) == 0 {
		fmt.Fprintf(&sb, "\t; %s", ExtOp(d))
	}
	return sb.String(), n
}

// Disassemble returns a listing of memory from from up to, but not
// including, to. Each line shows the address, the raw word and its
// decoding.
func Disassemble(m *Memory, from, to Addr) string {
	var sb strings.Builder
	for a := from; a < to && m.InBounds(a); {
		text, n := DisassembleAt(m, a)
		if n == 2 {
			fmt.Fprintf(&sb, "%5d: %04X %04X  %s\n", a, m.UWord(a), m.UWord(a+1), text)
		} else {
			fmt.Fprintf(&sb, "%5d: %04X       %s\n", a, m.UWord(a), text)
			n = 1
		}
		a += Addr(n)
	}
	return sb.String()
}

// Listing disassembles the loaded image, from the program origin to lomem.
func (v *VM) Listing() string {
	return Disassemble(v.mem, v.Origin(), v.lomem)
}

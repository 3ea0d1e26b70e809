package vm

// Resolve decodes the instruction at pc and computes its operand. It
// returns the function code, the operand (an address for S, J, T, F and K, a
// value for L and A, an operation number for X) and the address of the next
// instruction.
//
// The operand is fetched first, then offset by sp for frame-relative
// instructions, then replaced by the word it addresses for indirect ones.
func (m *Memory) Resolve(pc, sp Addr) (fn Fn, d int, next Addr) {
	w := m.UWord(pc)
	pc++
	if w&FlagD != 0 {
		d = int(m.Word(pc))
		pc++
	} else {
		d = int(w >> OperandShift)
	}
	if w&FlagP != 0 {
		d += int(sp)
	}
	if w&FlagI != 0 {
		d = int(m.Word(Addr(d)))
	}
	return Fn(w & FnMask), d, pc
}

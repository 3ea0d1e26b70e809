package vm

// exec performs the extended operation x. Binary operations take B as the
// left operand and A as the right, and leave the result in A.
func (v *VM) exec(x ExtOp) (bool, Word, error) {
	a, b := int(v.a), int(v.b)
	switch x {
	case XRv:
		v.a = v.mem.Word(v.a.Addr())
	case XNeg:
		v.a = wrap(-a)
	case XNot:
		v.a = ^v.a
	case XReturn:
		v.pc = v.mem.Word(v.sp + 1).Addr()
		v.sp = v.mem.Word(v.sp).Addr()
	case XMul:
		v.a = wrap(b * a)
	case XDiv:
		// division by zero leaves A unchanged
		if a != 0 {
			v.a = wrap(b / a)
		}
	case XRem:
		if a != 0 {
			v.a = wrap(b % a)
		}
	case XPlus:
		v.a = wrap(b + a)
	case XMinus:
		v.a = wrap(b - a)
	case XEq:
		v.a = truth(b == a)
	case XNe:
		v.a = truth(b != a)
	case XLs:
		v.a = truth(b < a)
	case XGe:
		v.a = truth(b >= a)
	case XGr:
		v.a = truth(b > a)
	case XLe:
		v.a = truth(b <= a)
	case XLshift:
		v.a = wrap(int(int32(b) << (uint(a) & 31)))
	case XRshift:
		v.a = wrap(int(uint32(UWord(v.b)) >> (uint(a) & 31)))
	case XLogAnd:
		v.a = v.b & v.a
	case XLogOr:
		v.a = v.b | v.a
	case XNeqv:
		v.a = v.b ^ v.a
	case XEqv:
		v.a = v.b ^ ^v.a
	case XFinish:
		return true, 0, nil
	case XSwitchOn:
		v.switchOn()
	default:
		return true, 0, v.newError(UnknownExec, int(x))
	}
	return false, 0, nil
}

// switchOn implements the multiway jump. The words following the
// instruction hold a case count n, a default address, then n pairs of
// (value, address). Control passes to the address of the first pair whose
// value equals A, else to the default.
//
// B is left holding the remaining case count, as the classic interpreter
// used it as the loop counter.
func (v *VM) switchOn() {
	p := v.pc
	v.b = v.mem.Word(p)
	v.pc = v.mem.Word(p + 1).Addr()
	p += 2
	for v.b != 0 {
		v.b--
		if v.a == v.mem.Word(p) {
			v.pc = v.mem.Word(p + 1).Addr()
			return
		}
		p += 2
	}
	v.b = -1
}

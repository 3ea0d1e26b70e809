package vm

// ControlBlock is a handle on a coroutine control block: two words in
// memory holding a suspended coroutine's stack pointer and program counter.
// Programs allocate and address control blocks themselves.
type ControlBlock struct {
	mem  *Memory
	Addr Addr
}

// ControlBlock returns a handle on the control block at a.
func (v *VM) ControlBlock(a Addr) ControlBlock {
	return ControlBlock{mem: v.mem, Addr: a}
}

// SP returns the saved stack pointer.
func (c ControlBlock) SP() Addr {
	return c.mem.Word(c.Addr).Addr()
}

// PC returns the saved program counter.
func (c ControlBlock) PC() Addr {
	return c.mem.Word(c.Addr + 1).Addr()
}

// Save records sp and pc in the block.
func (c ControlBlock) Save(sp, pc Addr) {
	c.mem.SetWord(c.Addr, sp.Word())
	c.mem.SetWord(c.Addr+1, pc.Word())
}

// ChangeCo transfers control to the coroutine whose control block is at
// cptr. The cell at currco holds the control block of the running coroutine,
// or 0 if none is recorded; the live sp and pc are saved there before the
// cell is updated to cptr. The resumed coroutine sees val in A.
//
// Unlike ordinary instructions, the switch validates its operands and
// returns a fatal *Error when they fall outside the machine.
func (v *VM) ChangeCo(val Word, cptr, currco Addr) error {
	words := Addr(v.mem.Len())
	if cptr <= 0 || cptr+6 >= words {
		return v.newError(BadChangeCoC, 0)
	}
	if currco < 0 || currco >= words {
		return v.newError(BadCurrCo, 0)
	}
	if cur := v.mem.Word(currco).Addr(); cur != 0 {
		if cur < 0 || cur+1 >= words {
			return v.newError(BadCurrCoVal, 0)
		}
		v.ControlBlock(cur).Save(v.sp, v.pc)
	}

	v.mem.SetWord(currco, cptr.Word())
	next := v.ControlBlock(cptr)
	v.sp, v.pc = next.SP(), next.PC()
	if v.sp >= words || v.sp < v.Origin() {
		return v.newError(BadChangeCoSP, int(v.sp))
	}
	if v.pc >= words || v.pc < v.Origin() {
		return v.newError(BadChangeCoPC, int(v.pc))
	}
	v.a = val
	log.Debugf("changeco to %d: sp %d pc %d", cptr, v.sp, v.pc)
	return nil
}

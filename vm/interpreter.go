package vm

// Run executes the loaded image from the program origin with the stack
// pointer at lomem, until the program finishes or a fatal error occurs. It
// returns the status passed to the stop syscall, or 0 after FINISH.
//
// Output streams are flushed before Run returns.
func (v *VM) Run() (Word, error) {
	v.pc = v.Origin()
	v.sp = v.lomem
	v.a, v.b = 0, 0
	log.Infof("running from %d, stack at %d", v.pc, v.sp)
	return v.Resume()
}

// Resume continues execution from the current registers.
func (v *VM) Resume() (Word, error) {
	defer v.streams.Flush()
	for {
		done, status, err := v.Step()
		if err != nil {
			return 0, err
		}
		if done {
			log.Infof("stopped with status %d", status)
			return status, nil
		}
	}
}

// Step executes a single instruction. done is true once the program has
// stopped, in which case status holds its stop value.
func (v *VM) Step() (done bool, status Word, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			if e.Errno == IntcodeError {
				e.Code = int(v.lastpc)
			}
			e.PC = v.lastpc
			done, status, err = true, 0, e
		}
	}()

	v.lastpc = v.pc
	fn, d, next := v.mem.Resolve(v.pc, v.sp)
	v.pc = next
	if v.Trace {
		v.trace(d)
	}

	switch fn {
	case FnLoad:
		v.b = v.a
		v.a = wrap(d)
	case FnStore:
		v.mem.SetWord(Addr(d), v.a)
	case FnAdd:
		v.a = wrap(int(v.a) + d)
	case FnJump:
		v.pc = Addr(d)
	case FnTrue:
		if v.a != 0 {
			v.pc = Addr(d)
		}
	case FnFalse:
		if v.a == 0 {
			v.pc = Addr(d)
		}
	case FnCall:
		return v.call(Addr(d) + v.sp)
	case FnExec:
		return v.exec(ExtOp(d))
	}
	return false, 0, nil
}

// call dispatches K. A target below the origin is a syscall whose arguments
// start two words into the frame; anything else is a procedure call that
// links the frame to the caller.
func (v *VM) call(frame Addr) (bool, Word, error) {
	if v.a < v.Origin().Word() {
		return v.syscall(Syscall(v.a), frame)
	}
	v.mem.SetWord(frame, v.sp.Word())
	v.mem.SetWord(frame+1, v.pc.Word())
	v.sp = frame
	v.pc = v.a.Addr()
	return false, 0, nil
}

func (v *VM) trace(d int) {
	text, _ := DisassembleAt(v.mem, v.lastpc)
	log.Debugf("%5d  %-14s  d=%-6d a=%-6d b=%-6d sp=%d", v.lastpc, text, d, v.a, v.b, v.sp)
}

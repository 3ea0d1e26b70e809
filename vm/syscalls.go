package vm

import "fmt"

// Syscall numbers a primitive reached through K with a target below the
// program origin. The numbers are the ABI shared with the BCPL library.
type Syscall int

const (
	SysStart        Syscall = 1
	SysSetPM        Syscall = 2
	SysAbort        Syscall = 3
	SysBacktrace    Syscall = 4
	SysSelectInput  Syscall = 11
	SysSelectOutput Syscall = 12
	SysRdch         Syscall = 13
	SysWrch         Syscall = 14
	SysInput        Syscall = 16
	SysOutput       Syscall = 17
	SysStop         Syscall = 30
	SysLevel        Syscall = 31
	SysLongJump     Syscall = 32
	SysAptovec      Syscall = 40
	SysFindOutput   Syscall = 41
	SysFindInput    Syscall = 42
	SysEndRead      Syscall = 46
	SysEndWrite     Syscall = 47
	SysWrites       Syscall = 60
	SysWriten       Syscall = 62
	SysNewline      Syscall = 63
	SysNewpage      Syscall = 64
	SysPackString   Syscall = 66
	SysUnpackString Syscall = 67
	SysWrited       Syscall = 68
	SysReadn        Syscall = 70
	SysWriteHex     Syscall = 75
	SysWritef       Syscall = 76
	SysWriteOct     Syscall = 77
	SysGetByte      Syscall = 85
	SysPutByte      Syscall = 86
	SysGetVec       Syscall = 87
	SysFreeVec      Syscall = 88
	SysRandom       Syscall = 89
	SysChangeCo     Syscall = 90
)

// GlobalTerminator is the global that readn leaves its terminating
// character in.
const GlobalTerminator Addr = 71

type sysEntry struct {
	name string
	f    func(v *VM, frame Addr)
}

// syscalls maps each primitive to its implementation. Arguments start at
// frame+2; results go to A. A primitive that fails fatally panics with an
// *Error, which Step recovers.
var syscalls = map[Syscall]sysEntry{
	SysStart:        {"start", (*VM).sysNop},
	SysSetPM:        {"setpm", (*VM).sysSetPM},
	SysAbort:        {"abort", (*VM).sysNop},
	SysBacktrace:    {"backtrace", (*VM).sysNop},
	SysSelectInput:  {"selectinput", (*VM).sysSelectInput},
	SysSelectOutput: {"selectoutput", (*VM).sysSelectOutput},
	SysRdch:         {"rdch", (*VM).sysRdch},
	SysWrch:         {"wrch", (*VM).sysWrch},
	SysInput:        {"input", (*VM).sysInput},
	SysOutput:       {"output", (*VM).sysOutput},
	SysStop:         {"stop", (*VM).sysStop},
	SysLevel:        {"level", (*VM).sysLevel},
	SysLongJump:     {"longjump", (*VM).sysLongJump},
	SysAptovec:      {"aptovec", (*VM).sysAptovec},
	SysFindOutput:   {"findoutput", (*VM).sysFindOutput},
	SysFindInput:    {"findinput", (*VM).sysFindInput},
	SysEndRead:      {"endread", (*VM).sysEndRead},
	SysEndWrite:     {"endwrite", (*VM).sysEndWrite},
	SysWrites:       {"writes", (*VM).sysWrites},
	SysWriten:       {"writen", (*VM).sysWriten},
	SysNewline:      {"newline", (*VM).sysNewline},
	SysNewpage:      {"newpage", (*VM).sysNewpage},
	SysPackString:   {"packstring", (*VM).sysPackString},
	SysUnpackString: {"unpackstring", (*VM).sysUnpackString},
	SysWrited:       {"writed", (*VM).sysWrited},
	SysReadn:        {"readn", (*VM).sysReadn},
	SysWriteHex:     {"writehex", (*VM).sysWriteHex},
	SysWritef:       {"writef", (*VM).sysWritef},
	SysWriteOct:     {"writeoct", (*VM).sysWriteOct},
	SysGetByte:      {"getbyte", (*VM).sysGetByte},
	SysPutByte:      {"putbyte", (*VM).sysPutByte},
	SysGetVec:       {"getvec", (*VM).sysGetVec},
	SysFreeVec:      {"freevec", (*VM).sysFreeVec},
	SysRandom:       {"random", (*VM).sysRandom},
	SysChangeCo:     {"changeco", (*VM).sysChangeCo},
}

// String returns the library name of the primitive.
func (n Syscall) String() string {
	if e, ok := syscalls[n]; ok {
		return e.name
	}
	return fmt.Sprintf("syscall(%d)", int(n))
}

// Defined reports whether n is in the syscall table.
func (n Syscall) Defined() bool {
	_, ok := syscalls[n]
	return ok
}

func (v *VM) syscall(n Syscall, frame Addr) (bool, Word, error) {
	e, ok := syscalls[n]
	if !ok {
		return true, 0, v.newError(UnknownCall, int(n))
	}
	e.f(v, frame)
	if v.stopped {
		v.stopped = false
		return true, v.status, nil
	}
	return false, 0, nil
}

// arg returns argument i of a syscall whose frame is at frame.
func (v *VM) arg(frame Addr, i int) Word {
	return v.mem.Word(frame + 2 + Addr(i))
}

func (v *VM) sysNop(frame Addr) {}

// sysSetPM is reached only from the bootstrap of the classic system. It
// plants a frame returning past the origin call and jumps to address 2.
func (v *VM) sysSetPM(frame Addr) {
	v.mem.SetWord(v.sp, 0)
	v.mem.SetWord(v.sp+1, (v.Origin() + 2).Word())
	v.pc = v.a.Addr()
}

func (v *VM) sysSelectInput(frame Addr) {
	v.streams.SelectInput(v.arg(frame, 0))
}

func (v *VM) sysSelectOutput(frame Addr) {
	v.streams.SelectOutput(v.arg(frame, 0))
}

func (v *VM) sysRdch(frame Addr) {
	v.a = v.streams.Rdch()
}

func (v *VM) sysWrch(frame Addr) {
	v.streams.Wrch(v.arg(frame, 0))
}

func (v *VM) sysInput(frame Addr) {
	v.a = v.streams.Input()
}

func (v *VM) sysOutput(frame Addr) {
	v.a = v.streams.Output()
}

func (v *VM) sysStop(frame Addr) {
	v.stopped = true
	v.status = v.arg(frame, 0)
}

func (v *VM) sysLevel(frame Addr) {
	v.a = v.sp.Word()
}

func (v *VM) sysLongJump(frame Addr) {
	sp, pc := v.arg(frame, 0), v.arg(frame, 1)
	v.sp, v.pc = sp.Addr(), pc.Addr()
}

// sysAptovec calls f(vec, n) where vec is an n+1 word vector carved out of
// the caller's frame; the callee's frame sits immediately above it.
func (v *VM) sysAptovec(frame Addr) {
	f, n := v.arg(frame, 0), v.arg(frame, 1)
	callee := frame + n.Addr() + 1
	v.b = callee.Word()
	v.mem.SetWord(callee, v.sp.Word())
	v.mem.SetWord(callee+1, v.pc.Word())
	v.mem.SetWord(callee+2, frame.Word())
	v.mem.SetWord(callee+3, n)
	v.sp = callee
	v.pc = f.Addr()
}

func (v *VM) sysFindOutput(frame Addr) {
	v.a = v.streams.Open(v.cstr(v.arg(frame, 0).Addr()), ModeWrite)
}

func (v *VM) sysFindInput(frame Addr) {
	v.a = v.streams.Open(v.cstr(v.arg(frame, 0).Addr()), ModeRead)
}

func (v *VM) sysEndRead(frame Addr) {
	v.streams.EndRead()
}

func (v *VM) sysEndWrite(frame Addr) {
	v.streams.EndWrite()
}

func (v *VM) sysWrites(frame Addr) {
	v.writes(v.arg(frame, 0).Addr())
}

func (v *VM) sysWriten(frame Addr) {
	v.writed(v.arg(frame, 0), 0)
}

func (v *VM) sysNewline(frame Addr) {
	v.streams.Newline()
}

func (v *VM) sysNewpage(frame Addr) {
	v.streams.Wrch(ascFF)
}

func (v *VM) sysPackString(frame Addr) {
	v.a = v.PackString(v.arg(frame, 0).Addr(), v.arg(frame, 1).Addr())
}

func (v *VM) sysUnpackString(frame Addr) {
	v.UnpackString(v.arg(frame, 0).Addr(), v.arg(frame, 1).Addr())
}

func (v *VM) sysWrited(frame Addr) {
	v.writed(v.arg(frame, 0), v.arg(frame, 1))
}

func (v *VM) sysReadn(frame Addr) {
	v.a = v.readn()
}

func (v *VM) sysWriteHex(frame Addr) {
	v.writehex(UWord(v.arg(frame, 0)), int(v.arg(frame, 1)))
}

func (v *VM) sysWritef(frame Addr) {
	v.writef(frame + 2)
}

func (v *VM) sysWriteOct(frame Addr) {
	v.writeoct(UWord(v.arg(frame, 0)), int(v.arg(frame, 1)))
}

func (v *VM) sysGetByte(frame Addr) {
	base, i := v.arg(frame, 0), v.arg(frame, 1)
	v.a = Word(v.mem.Byte(int(base)*BytesPerWord + int(i)))
}

func (v *VM) sysPutByte(frame Addr) {
	base, i, c := v.arg(frame, 0), v.arg(frame, 1), v.arg(frame, 2)
	v.mem.SetByte(int(base)*BytesPerWord+int(i), byte(c))
}

func (v *VM) sysGetVec(frame Addr) {
	v.a = v.Allocate(int(v.arg(frame, 0))).Word()
}

func (v *VM) sysFreeVec(frame Addr) {
	v.Free(v.arg(frame, 0).Addr())
}

func (v *VM) sysRandom(frame Addr) {
	v.a = Word(v.rng.Uint32())
}

func (v *VM) sysChangeCo(frame Addr) {
	if err := v.ChangeCo(v.arg(frame, 0), v.arg(frame, 1).Addr(), v.arg(frame, 2).Addr()); err != nil {
		panic(err)
	}
}

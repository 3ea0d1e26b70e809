// Package assembler loads INTCODE assembly text into a machine's memory.
//
// The text is a stream of single-letter directives with decimal operands.
// Forward label references are chained through the words that use them and
// patched when the label is defined, so a unit is assembled in one pass.
package assembler

import (
	"bufio"
	"errors"
	"io"

	"github.com/chazu/icint/vm"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("icint.assembler")

const endOfStream = -1

// Assembler holds the scanning state for one code unit.
type Assembler struct {
	v   *vm.VM
	mem *vm.Memory
	r   *bufio.Reader

	ch int // current character, endOfStream at the end
	cp int // byte position within the last emitted word, 0 if none pending

	labels vm.Addr // address of label 0
	nlabel int
}

// New creates an assembler that emits into v, reading text from r.
func New(v *vm.VM, r io.Reader) *Assembler {
	return &Assembler{
		v:      v,
		mem:    v.Memory(),
		r:      bufio.NewReader(r),
		labels: v.LabelBase(),
		nlabel: v.LabelCount(),
	}
}

// Assemble loads one code unit from r into v. It is the backend installed
// with vm.UseAssembler.
func Assemble(v *vm.VM, r io.Reader) error {
	return New(v, r).Run()
}

// Run assembles until the end of the input. Errors are *vm.Error values
// carrying the reference message and code.
func (as *Assembler) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*vm.Error)
			if !ok {
				panic(r)
			}
			if e.Errno == vm.IntcodeError {
				// a directive addressed a word outside memory
				e = vm.NewError(vm.BadCode, int(as.v.LoMem()))
			}
			err = e
		}
	}()

	as.clearLabels()
	as.rch()
	for {
		if isDigit(as.ch) {
			as.define(as.rdn())
			continue
		}

		var fn vm.Fn
		switch as.ch {
		case endOfStream:
			return nil
		case '$', ' ', '\n':
			as.rch()
			continue
		case 'C':
			as.rch()
			as.stc(byte(as.rdn()))
			continue
		case 'D':
			as.rch()
			if as.ch == 'L' {
				as.rch()
				as.stw(0)
				as.labref(as.rdn(), as.v.LoMem()-1)
			} else {
				as.stw(vm.Word(as.rdn()))
			}
			continue
		case 'G':
			as.rch()
			n := vm.Addr(as.rdn())
			if as.ch != 'L' {
				as.fail(vm.BadCode, int(as.v.LoMem()))
			}
			as.rch()
			as.mem.SetWord(n, 0)
			as.labref(as.rdn(), n)
			continue
		case 'Z':
			as.checkpoint()
			as.rch()
			continue
		default:
			var ok bool
			if as.ch >= 0 && as.ch < 128 {
				fn, ok = vm.FnForLetter(byte(as.ch))
			}
			if !ok {
				as.fail(vm.BadCh, as.ch)
			}
		}
		as.instruction(fn)
	}
}

// instruction assembles the remainder of an instruction after its function
// letter: optional I, P and G modifiers, then a literal or a label.
func (as *Assembler) instruction(fn vm.Fn) {
	var flags vm.UWord
	as.rch()
	if as.ch == 'I' {
		flags |= vm.FlagI
		as.rch()
	}
	if as.ch == 'P' {
		flags |= vm.FlagP
		as.rch()
	}
	if as.ch == 'G' {
		// globals are absolute addresses already
		as.rch()
	}

	if as.ch == 'L' {
		as.rch()
		w, _ := vm.Encode(fn, flags|vm.FlagD, 0)
		as.stw(w)
		as.stw(0)
		as.labref(as.rdn(), as.v.LoMem()-1)
		return
	}

	d := as.rdn()
	w, extra := vm.Encode(fn, flags, d)
	as.stw(w)
	if extra {
		as.stw(vm.Word(d))
	}
}

// define binds label n to the current load point and patches every
// reference chained through it.
func (as *Assembler) define(n int) {
	cell := as.label(n)
	k := as.mem.Word(cell)
	if k < 0 {
		as.fail(vm.DuplicateLabel, n)
	}
	here := as.v.LoMem()
	for a := vm.Addr(k); a > 0; {
		next := vm.Addr(as.mem.Word(a))
		as.mem.SetWord(a, here.Word())
		a = next
	}
	as.mem.SetWord(cell, -here.Word())
	as.cp = 0
	log.Debugf("label %d = %d", n, here)
}

// labref adds the value of label n into the word at a. A label that is not
// yet defined has its chain extended through a instead.
func (as *Assembler) labref(n int, a vm.Addr) {
	cell := as.label(n)
	k := as.mem.Word(cell)
	if k < 0 {
		k = -k
	} else {
		as.mem.SetWord(cell, a.Word())
	}
	as.mem.AddWord(a, k)
}

// checkpoint ends a label scope. Any label still referenced but undefined
// is an error.
func (as *Assembler) checkpoint() {
	for n := 0; n < as.nlabel; n++ {
		if as.mem.Word(as.labels+vm.Addr(n)) > 0 {
			as.fail(vm.UnsetLabel, n)
		}
	}
	as.clearLabels()
}

func (as *Assembler) clearLabels() {
	for n := 0; n < as.nlabel; n++ {
		as.mem.SetWord(as.labels+vm.Addr(n), 0)
	}
	as.cp = 0
}

func (as *Assembler) label(n int) vm.Addr {
	if n < 0 || n >= as.nlabel {
		as.fail(vm.BadLabel, n)
	}
	return as.labels + vm.Addr(n)
}

func (as *Assembler) stw(w vm.Word) {
	if _, err := as.v.Emit(w); err != nil {
		panic(err)
	}
	as.cp = 0
}

// stc packs a character into the last word, starting a fresh word when no
// byte slot is pending.
func (as *Assembler) stc(c byte) {
	if as.cp == 0 {
		as.stw(0)
	}
	as.mem.SetByte(int(as.v.LoMem()-1)*vm.BytesPerWord+as.cp, c)
	as.cp++
	if as.cp == vm.BytesPerWord {
		as.cp = 0
	}
}

// rch advances to the next significant character. Comments run from '/' to
// the end of the line and swallow the line breaks that follow.
func (as *Assembler) rch() {
	as.ch = as.rdch()
	for as.ch == '/' {
		for as.ch != '\n' && as.ch != endOfStream {
			as.ch = as.rdch()
		}
		for as.ch == '\n' {
			as.ch = as.rdch()
		}
	}
}

func (as *Assembler) rdch() int {
	c, err := as.r.ReadByte()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			log.Errorf("reading code: %s", err)
		}
		return endOfStream
	}
	if c == '\r' {
		return '\n'
	}
	return int(c)
}

// rdn reads an optionally negative decimal number. No digits reads as 0.
func (as *Assembler) rdn() int {
	neg := as.ch == '-'
	if neg {
		as.rch()
	}
	sum := 0
	for isDigit(as.ch) {
		sum = sum*10 + as.ch - '0'
		as.rch()
	}
	if neg {
		return -sum
	}
	return sum
}

func (as *Assembler) fail(errno vm.Errno, code int) {
	panic(vm.NewError(errno, code))
}

func isDigit(c int) bool {
	return c >= '0' && c <= '9'
}

package vm

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("icint.vm")

// Reference configuration of the classic interpreter.
const (
	DefaultWordCount  = 19900
	DefaultOrigin     = 401
	DefaultLabelCount = 500
)

// Config sizes a machine and binds its host environment.
type Config struct {
	WordCount  int    // memory size in words
	Origin     int    // program origin; call targets below it are syscalls
	LabelCount int    // assembler label table entries at the top of memory
	Seed       uint64 // seed for the random syscall

	Stdin  io.Reader // default input stream (SYSIN)
	Stdout io.Writer // default output stream (SYSPRINT)
	Host   Host      // opens named files; nil means the host filesystem

	Trace bool // log every instruction at debug level
}

// DefaultConfig returns the reference configuration bound to the process's
// standard streams.
func DefaultConfig() Config {
	return Config{
		WordCount:  DefaultWordCount,
		Origin:     DefaultOrigin,
		LabelCount: DefaultLabelCount,
		Seed:       1,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
	}
}

func (c Config) validate() error {
	if c.Origin < 3 {
		return fmt.Errorf("origin %d leaves no room for globals", c.Origin)
	}
	if c.LabelCount <= 0 {
		return fmt.Errorf("label count must be positive, got %d", c.LabelCount)
	}
	// bootstrap needs three words above the origin
	if c.WordCount-c.LabelCount <= c.Origin+3 {
		return fmt.Errorf("memory of %d words cannot hold origin %d and %d labels",
			c.WordCount, c.Origin, c.LabelCount)
	}
	if c.WordCount > 1<<15 {
		return fmt.Errorf("memory of %d words is not addressable by a 16-bit word", c.WordCount)
	}
	return nil
}

// AssembleFunc loads one code unit from r into the machine.
type AssembleFunc func(v *VM, r io.Reader) error

// VM is one INTCODE machine. All mutable state (memory, registers, streams,
// the vector free list and the label table) belongs to the VM value.
type VM struct {
	cfg Config
	mem *Memory

	// registers
	pc, sp Addr
	a, b   Word
	lastpc Addr // pc of the instruction being executed

	stopped bool // set by the stop syscall
	status  Word // stop value

	// memory boundaries
	lomem   Addr // first free word above code, grows upward
	himem   Addr // last free word below carved vectors, shrinks downward
	vecfree Addr // head of the vector free list, 0 when empty

	streams *Streams
	rng     *rand.Rand

	assemble AssembleFunc

	// Trace enables the per-instruction debug log.
	Trace bool
}

// New creates a machine from cfg, initialises low memory and writes the
// bootstrap sequence at the program origin.
func New(cfg Config) (*VM, error) {
	if cfg.WordCount == 0 {
		cfg.WordCount = DefaultWordCount
	}
	if cfg.Origin == 0 {
		cfg.Origin = DefaultOrigin
	}
	if cfg.LabelCount == 0 {
		cfg.LabelCount = DefaultLabelCount
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Host == nil {
		cfg.Host = OSHost{}
	}

	v := &VM{
		cfg:     cfg,
		mem:     NewMemory(cfg.WordCount),
		streams: NewStreams(cfg.Host, cfg.Stdin, cfg.Stdout),
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		Trace:   cfg.Trace,
	}
	v.reset()
	return v, nil
}

// NewVM creates a machine with the reference configuration reading from in
// and writing to out.
func NewVM(in io.Reader, out io.Writer) *VM {
	cfg := DefaultConfig()
	cfg.Stdin = in
	cfg.Stdout = out
	v, err := New(cfg)
	if err != nil {
		panic(err) // the reference configuration is always valid
	}
	return v
}

func (v *VM) reset() {
	// A global that was never set holds its own number, so calling it
	// reaches the syscall of the same number.
	for a := Addr(0); a < v.Origin(); a++ {
		v.mem.SetWord(a, a.Word())
	}
	v.lomem = v.Origin()
	v.himem = Addr(v.cfg.WordCount - v.cfg.LabelCount - 1)
	v.vecfree = 0

	// LI1 K2 X22: call global 1 with a frame above the loaded code, then
	// finish when it returns.
	for _, w := range []Word{
		Word(UWord(FnLoad) | FlagI | 1<<OperandShift),
		Word(UWord(FnCall) | 2<<OperandShift),
		Word(UWord(FnExec) | UWord(XFinish)<<OperandShift),
	} {
		v.mem.SetWord(v.lomem, w)
		v.lomem++
	}
}

// Config returns the machine's configuration.
func (v *VM) Config() Config {
	return v.cfg
}

// Memory returns the machine's memory.
func (v *VM) Memory() *Memory {
	return v.mem
}

// Origin returns the program origin.
func (v *VM) Origin() Addr {
	return Addr(v.cfg.Origin)
}

// LoMem returns the first word above the loaded image.
func (v *VM) LoMem() Addr {
	return v.lomem
}

// HiMem returns the highest word not yet carved for vectors.
func (v *VM) HiMem() Addr {
	return v.himem
}

// LabelBase returns the address of the assembler's label table.
func (v *VM) LabelBase() Addr {
	return Addr(v.cfg.WordCount - v.cfg.LabelCount)
}

// LabelCount returns the number of label table entries.
func (v *VM) LabelCount() int {
	return v.cfg.LabelCount
}

// Emit appends w to the image at lomem and returns its address.
func (v *VM) Emit(w Word) (Addr, error) {
	if v.lomem > v.himem {
		return 0, NewError(NoMemory, int(v.lomem))
	}
	a := v.lomem
	v.mem.SetWord(a, w)
	v.lomem++
	return a, nil
}

// Registers returns pc, sp, a and b.
func (v *VM) Registers() (pc, sp Addr, a, b Word) {
	return v.pc, v.sp, v.a, v.b
}

// Streams returns the machine's stream table.
func (v *VM) Streams() *Streams {
	return v.streams
}

// UseAssembler installs the assembler backend used by LoadCode.
func (v *VM) UseAssembler(f AssembleFunc) {
	v.assemble = f
}

// LoadCode assembles one code unit from r into memory.
func (v *VM) LoadCode(r io.Reader) error {
	if v.assemble == nil {
		return errors.New("no assembler installed")
	}
	before := v.lomem
	if err := v.assemble(v, r); err != nil {
		return err
	}
	log.Infof("loaded code unit at %d..%d", before, v.lomem-1)
	return nil
}

// LoadFile opens name as an input stream and assembles it. Names are
// resolved as for findinput, so SYSIN reads code from the default input. An
// unopenable file is the fatal NO ICFILE condition.
func (v *VM) LoadFile(name string) error {
	h := v.streams.Open(name, ModeRead)
	if h == 0 {
		return NewError(NoICFile, 0)
	}
	defer v.streams.Release(h)
	return v.LoadCode(v.streams.Reader(h))
}

// RedirectInput binds name as SYSIN.
func (v *VM) RedirectInput(name string) error {
	h := v.streams.Open(name, ModeRead)
	if h == 0 {
		return NewError(NoInput, 0)
	}
	v.streams.sysin, v.streams.cis = h, h
	return nil
}

// RedirectOutput binds name as SYSPRINT.
func (v *VM) RedirectOutput(name string) error {
	h := v.streams.Open(name, ModeWrite)
	if h == 0 {
		return NewError(NoOutput, 0)
	}
	v.streams.sysprint, v.streams.cos = h, h
	return nil
}

// Report writes the message of a fatal error to SYSPRINT, reselecting it as
// the current output first.
func (v *VM) Report(err error) {
	v.streams.cos = v.streams.sysprint
	for _, c := range []byte(err.Error()) {
		v.streams.Wrch(Word(c))
	}
	v.streams.Newline()
	v.streams.Flush()
}

// Close flushes and closes every stream the machine opened.
func (v *VM) Close() error {
	return v.streams.Close()
}

package vm

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// codeBase is the first word after the bootstrap in the reference layout.
const codeBase Addr = DefaultOrigin + 3

// ins encodes one instruction, with its operand word when it does not fit
// inline.
func ins(fn Fn, flags UWord, d int) []Word {
	w, extra := Encode(fn, flags, d)
	if extra {
		return []Word{w, Word(d)}
	}
	return []Word{w}
}

func newTestVM(t *testing.T, input string) (*VM, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return NewVM(strings.NewReader(input), &out), &out
}

// load emits code at lomem and makes it the entry point called by the
// bootstrap.
func load(t *testing.T, v *VM, code ...[]Word) Addr {
	t.Helper()
	start := v.LoMem()
	for _, ws := range code {
		for _, w := range ws {
			if _, err := v.Emit(w); err != nil {
				t.Fatalf("Emit: %v", err)
			}
		}
	}
	v.Memory().SetWord(1, start.Word())
	return start
}

// memHost serves files from memory.
type memHost struct {
	files map[string]*bytes.Buffer
}

func newMemHost() *memHost {
	return &memHost{files: map[string]*bytes.Buffer{}}
}

func (h *memHost) OpenRead(name string) (io.ReadCloser, error) {
	b, ok := h.files[name]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(b.Bytes())), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (h *memHost) OpenWrite(name string) (io.WriteCloser, error) {
	b := &bytes.Buffer{}
	h.files[name] = b
	return nopWriteCloser{b}, nil
}

func TestNewReferenceLayout(t *testing.T) {
	v, _ := newTestVM(t, "")
	m := v.Memory()

	if m.Len() != DefaultWordCount {
		t.Errorf("memory = %d words, want %d", m.Len(), DefaultWordCount)
	}
	for _, a := range []Addr{0, 1, 2, 99, DefaultOrigin - 1} {
		if got := m.Word(a); got != a.Word() {
			t.Errorf("m[%d] = %d, want %d", a, got, a)
		}
	}
	if v.LoMem() != codeBase {
		t.Errorf("lomem = %d, want %d", v.LoMem(), codeBase)
	}
	if want := Addr(DefaultWordCount - DefaultLabelCount - 1); v.HiMem() != want {
		t.Errorf("himem = %d, want %d", v.HiMem(), want)
	}
	if want := Addr(DefaultWordCount - DefaultLabelCount); v.LabelBase() != want {
		t.Errorf("label base = %d, want %d", v.LabelBase(), want)
	}

	boot := []string{"LI 1", "K 2", "X 22\t; FINISH"}
	for i, want := range boot {
		got, _ := DisassembleAt(m, v.Origin()+Addr(i))
		if got != want {
			t.Errorf("bootstrap word %d = %q, want %q", i, got, want)
		}
	}
}

func TestNewRejectsBadGeometry(t *testing.T) {
	tests := []Config{
		{WordCount: 100, Origin: 401, LabelCount: 10},
		{WordCount: 40000, Origin: 401, LabelCount: 500},
		{WordCount: 1000, Origin: 1, LabelCount: 10},
		{WordCount: 1000, Origin: 401, LabelCount: -1},
	}
	for _, cfg := range tests {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) succeeded, want error", cfg)
		}
	}
}

func TestEmitStopsAtHighMemory(t *testing.T) {
	v, err := New(Config{WordCount: 420, Origin: 401, LabelCount: 10})
	if err != nil {
		t.Fatal(err)
	}
	for v.LoMem() <= v.HiMem() {
		if _, err := v.Emit(0); err != nil {
			t.Fatalf("Emit at %d: %v", v.LoMem(), err)
		}
	}
	if _, err := v.Emit(0); !errors.Is(err, NoMemory) {
		t.Errorf("Emit past himem = %v, want NO MEMORY", err)
	}
}

func TestLoadCodeWithoutAssembler(t *testing.T) {
	v, _ := newTestVM(t, "")
	if err := v.LoadCode(strings.NewReader("X22")); err == nil {
		t.Error("LoadCode without an assembler succeeded")
	}
}

func TestLoadCodeUsesBackend(t *testing.T) {
	v, _ := newTestVM(t, "")
	var got string
	v.UseAssembler(func(v *VM, r io.Reader) error {
		b, err := io.ReadAll(r)
		got = string(b)
		return err
	})
	if err := v.LoadCode(strings.NewReader("X22")); err != nil {
		t.Fatal(err)
	}
	if got != "X22" {
		t.Errorf("backend read %q, want %q", got, "X22")
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = newMemHost()
	v, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	v.UseAssembler(func(*VM, io.Reader) error { return nil })
	err = v.LoadFile("missing.ic")
	if err == nil || err.Error() != "NO ICFILE" {
		t.Errorf("LoadFile = %v, want NO ICFILE", err)
	}
}

func TestRedirects(t *testing.T) {
	host := newMemHost()
	host.files["in.txt"] = bytes.NewBufferString("Q")
	cfg := DefaultConfig()
	cfg.Host = host
	v, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := v.RedirectInput("nope"); !errors.Is(err, NoInput) {
		t.Errorf("RedirectInput(nope) = %v, want NO INPUT", err)
	}
	if err := v.RedirectInput("in.txt"); err != nil {
		t.Fatal(err)
	}
	if c := v.Streams().Rdch(); c != 'Q' {
		t.Errorf("rdch = %d, want 'Q'", c)
	}
	if err := v.RedirectOutput("out.txt"); err != nil {
		t.Fatal(err)
	}
	v.Report(NewError(UnknownCall, 5))
	if got := host.files["out.txt"].String(); got != "UNKNOWN CALL #5\n" {
		t.Errorf("report = %q", got)
	}
}

func TestReportReselectsSysprint(t *testing.T) {
	v, out := newTestVM(t, "")
	v.Streams().SelectOutput(0)
	v.Report(NewError(BadCh, 0))
	if out.String() != "BAD CH\n" {
		t.Errorf("report = %q, want %q", out.String(), "BAD CH\n")
	}
}

func readingBackend(got *string) AssembleFunc {
	return func(v *VM, r io.Reader) error {
		b, err := io.ReadAll(r)
		*got = string(b)
		return err
	}
}

func TestLoadFileFromSysin(t *testing.T) {
	v, _ := newTestVM(t, "X22")
	var got string
	v.UseAssembler(readingBackend(&got))
	if err := v.LoadFile("sysin"); err != nil {
		t.Fatalf("LoadFile(sysin): %v", err)
	}
	if got != "X22" {
		t.Errorf("assembled %q, want %q", got, "X22")
	}
	if h := v.Streams().Input(); h != v.Streams().SysIn() {
		t.Errorf("current input = %d after loading from SYSIN", h)
	}
}

func TestLoadFileLowerCaseFallback(t *testing.T) {
	host := newMemHost()
	host.files["prog.ic"] = bytes.NewBufferString("L1")
	cfg := DefaultConfig()
	cfg.Host = host
	v, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	var got string
	v.UseAssembler(readingBackend(&got))
	if err := v.LoadFile("PROG.IC"); err != nil {
		t.Fatalf("LoadFile(PROG.IC): %v", err)
	}
	if got != "L1" {
		t.Errorf("assembled %q, want %q", got, "L1")
	}
}

func TestLoadFileReleasesStream(t *testing.T) {
	host := newMemHost()
	host.files["a.ic"] = bytes.NewBufferString("X22")
	cfg := DefaultConfig()
	cfg.Host = host
	v, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	var got string
	v.UseAssembler(readingBackend(&got))
	if err := v.LoadFile("a.ic"); err != nil {
		t.Fatal(err)
	}
	// the handle used for the code file is gone; input is still SYSIN
	if h := v.Streams().Input(); h != v.Streams().SysIn() {
		t.Errorf("current input = %d, want SYSIN", h)
	}
	v.Streams().SelectInput(3)
	if c := v.Streams().Rdch(); c != EndStreamCh {
		t.Errorf("released code stream still readable: rdch = %d", c)
	}
}

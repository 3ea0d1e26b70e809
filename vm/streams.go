package vm

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

// EndStreamCh is returned by rdch at end of stream.
const EndStreamCh Word = -1

const (
	ascLF = 10
	ascFF = 12
	ascCR = 13
)

// Mode selects how Streams.Open opens a file.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// Host opens named files on behalf of the machine.
type Host interface {
	OpenRead(name string) (io.ReadCloser, error)
	OpenWrite(name string) (io.WriteCloser, error)
}

// OSHost opens files on the host filesystem.
type OSHost struct{}

func (OSHost) OpenRead(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

func (OSHost) OpenWrite(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

type stream struct {
	name    string
	r       *bufio.Reader
	w       *bufio.Writer
	c       io.Closer // nil for the console streams
	console bool
}

// Streams is the table of open streams. Programs see streams as small
// integer handles; handle 0 is the null stream.
type Streams struct {
	host  Host
	table []*stream

	cis, cos        Word // current input and output
	sysin, sysprint Word // defaults restored by endread and endwrite
}

// NewStreams creates a table with SYSIN as handle 1 and SYSPRINT as handle 2.
func NewStreams(host Host, in io.Reader, out io.Writer) *Streams {
	return &Streams{
		host: host,
		table: []*stream{
			nil,
			{name: "SYSIN", r: bufio.NewReader(in), console: true},
			{name: "SYSPRINT", w: bufio.NewWriter(out), console: true},
		},
		cis:      1,
		cos:      2,
		sysin:    1,
		sysprint: 2,
	}
}

func (s *Streams) lookup(h Word) *stream {
	if h <= 0 || int(h) >= len(s.table) {
		return nil
	}
	return s.table[h]
}

// Open opens name for reading or writing and returns its handle, or 0 if it
// cannot be opened. The names SYSIN and SYSPRINT, in any case, return the
// default handles.
//
// A failed read of a mixed-case name is retried in lower case, which lets
// programs written for case-insensitive filesystems find their files.
func (s *Streams) Open(name string, mode Mode) Word {
	switch {
	case strings.EqualFold(name, "SYSIN"):
		return s.sysin
	case strings.EqualFold(name, "SYSPRINT"):
		return s.sysprint
	}

	st := &stream{name: name}
	switch mode {
	case ModeRead:
		f, err := s.host.OpenRead(name)
		if err != nil && name != strings.ToLower(name) {
			f, err = s.host.OpenRead(strings.ToLower(name))
		}
		if err != nil {
			log.Debugf("findinput %q: %s", name, err)
			return 0
		}
		st.r, st.c = bufio.NewReader(f), f
	case ModeWrite:
		f, err := s.host.OpenWrite(name)
		if err != nil {
			log.Debugf("findoutput %q: %s", name, err)
			return 0
		}
		st.w, st.c = bufio.NewWriter(f), f
	}
	s.table = append(s.table, st)
	h := Word(len(s.table) - 1)
	log.Debugf("opened %q as stream %d", name, h)
	return h
}

// SelectInput makes h the current input stream.
func (s *Streams) SelectInput(h Word) { s.cis = h }

// SelectOutput makes h the current output stream.
func (s *Streams) SelectOutput(h Word) { s.cos = h }

// Input returns the current input stream.
func (s *Streams) Input() Word { return s.cis }

// Output returns the current output stream.
func (s *Streams) Output() Word { return s.cos }

// SysIn returns the default input stream.
func (s *Streams) SysIn() Word { return s.sysin }

// SysPrint returns the default output stream.
func (s *Streams) SysPrint() Word { return s.sysprint }

// Rdch reads one character from the current input. CR reads as LF. End of
// stream, a read error, or a stream that is not readable yields EndStreamCh.
func (s *Streams) Rdch() Word {
	st := s.lookup(s.cis)
	if st == nil || st.r == nil {
		return EndStreamCh
	}
	c, err := st.r.ReadByte()
	if err != nil {
		return EndStreamCh
	}
	if c == ascCR {
		return ascLF
	}
	return Word(c)
}

// Wrch writes the low byte of c to the current output. LF is written as a
// newline. Writes to a stream that is not writable are dropped.
func (s *Streams) Wrch(c Word) {
	if c == ascLF {
		s.Newline()
		return
	}
	if st := s.lookup(s.cos); st != nil && st.w != nil {
		st.w.WriteByte(byte(c))
	}
}

// Newline ends the current output line. Console output is flushed at every
// newline.
func (s *Streams) Newline() {
	st := s.lookup(s.cos)
	if st == nil || st.w == nil {
		return
	}
	st.w.WriteByte('\n')
	if st.console {
		st.w.Flush()
	}
}

// Reader returns the buffered reader behind handle h, or an empty reader if
// h is not readable.
func (s *Streams) Reader(h Word) io.Reader {
	if st := s.lookup(h); st != nil && st.r != nil {
		return st.r
	}
	return strings.NewReader("")
}

// Release closes handle h unless it is one of the defaults.
func (s *Streams) Release(h Word) {
	if h == s.sysin || h == s.sysprint {
		return
	}
	if st := s.lookup(h); st != nil {
		if st.w != nil {
			st.w.Flush()
		}
		if st.c != nil {
			st.c.Close()
		}
		s.table[h] = nil
	}
}

// EndRead closes the current input and reselects SYSIN.
func (s *Streams) EndRead() {
	s.Release(s.cis)
	s.cis = s.sysin
}

// EndWrite flushes and closes the current output and reselects SYSPRINT.
func (s *Streams) EndWrite() {
	s.Release(s.cos)
	s.cos = s.sysprint
}

// Flush flushes every writable stream.
func (s *Streams) Flush() error {
	var errs []error
	for _, st := range s.table {
		if st != nil && st.w != nil {
			if err := st.w.Flush(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close flushes every stream and closes the ones opened through the host.
func (s *Streams) Close() error {
	errs := []error{s.Flush()}
	for i, st := range s.table {
		if st != nil && st.c != nil {
			errs = append(errs, st.c.Close())
			s.table[i] = nil
		}
	}
	return errors.Join(errs...)
}

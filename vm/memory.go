package vm

// BytesPerWord is the number of bytes packed into one word.
const BytesPerWord = 2

// Memory is the machine's word store with a byte-addressable overlay. Byte i
// lives in word i/2; even bytes occupy the low half of the word.
//
// Accessors are bounds-checked. An out-of-range access panics with an
// *Error carrying IntcodeError, which the interpreter and the assembler
// recover into an ordinary returned error.
type Memory struct {
	words []Word
}

// NewMemory returns a zeroed memory of n words.
func NewMemory(n int) *Memory {
	return &Memory{words: make([]Word, n)}
}

// Len returns the number of words.
func (m *Memory) Len() int {
	return len(m.words)
}

// InBounds reports whether a is a valid word address.
func (m *Memory) InBounds(a Addr) bool {
	return a >= 0 && int(a) < len(m.words)
}

func (m *Memory) check(a Addr) {
	if !m.InBounds(a) {
		panic(&Error{Errno: IntcodeError, Addr: a})
	}
}

// Word reads the signed word at a.
func (m *Memory) Word(a Addr) Word {
	m.check(a)
	return m.words[a]
}

// UWord reads the word at a as unsigned.
func (m *Memory) UWord(a Addr) UWord {
	m.check(a)
	return UWord(m.words[a])
}

// SetWord stores w at a.
func (m *Memory) SetWord(a Addr, w Word) {
	m.check(a)
	m.words[a] = w
}

// AddWord adds w into the word at a, wrapping.
func (m *Memory) AddWord(a Addr, w Word) {
	m.check(a)
	m.words[a] += w
}

// Byte reads byte i of the overlay.
func (m *Memory) Byte(i int) byte {
	a := Addr(i >> 1)
	m.check(a)
	w := UWord(m.words[a])
	if i&1 != 0 {
		return byte(w >> 8)
	}
	return byte(w)
}

// SetByte stores b at byte i of the overlay.
func (m *Memory) SetByte(i int, b byte) {
	a := Addr(i >> 1)
	m.check(a)
	w := UWord(m.words[a])
	if i&1 != 0 {
		w = w&0x00ff | UWord(b)<<8
	} else {
		w = w&0xff00 | UWord(b)
	}
	m.words[a] = Word(w)
}

// Words returns a copy of the words in [from, to).
func (m *Memory) Words(from, to Addr) []Word {
	if from < 0 {
		from = 0
	}
	if int(to) > len(m.words) {
		to = Addr(len(m.words))
	}
	if from >= to {
		return nil
	}
	return append([]Word(nil), m.words[from:to]...)
}

// Load copies ws into memory starting at a.
func (m *Memory) Load(a Addr, ws []Word) {
	if len(ws) == 0 {
		return
	}
	m.check(a)
	m.check(a + Addr(len(ws)) - 1)
	copy(m.words[a:], ws)
}

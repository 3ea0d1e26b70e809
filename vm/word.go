package vm

import "strconv"

// Word is the machine's 16-bit two's-complement storage and arithmetic unit.
type Word int16

// UWord is the unsigned view of a Word.
type UWord uint16

// Addr indexes memory in word units. It is wider than a Word so that operand
// arithmetic such as frame-relative offsets never wraps before it is checked.
type Addr int

// BCPL truth values.
const (
	False Word = 0
	True  Word = -1
)

// wrap truncates n to 16 bits.
func wrap(n int) Word {
	return Word(int16(n))
}

func truth(b bool) Word {
	if b {
		return True
	}
	return False
}

// Addr converts a word holding an address.
func (w Word) Addr() Addr {
	return Addr(w)
}

func (w Word) String() string {
	return strconv.Itoa(int(w))
}

// Word converts an address back to its stored form.
func (a Addr) Word() Word {
	return wrap(int(a))
}

func (a Addr) String() string {
	return strconv.Itoa(int(a))
}

package vm

import "fmt"

// Fn is an instruction function code, held in the low three bits of an
// instruction word.
type Fn byte

const (
	FnLoad  Fn = 0 // L: b = a; a = operand
	FnStore Fn = 1 // S: m[operand] = a
	FnAdd   Fn = 2 // A: a = a + operand
	FnJump  Fn = 3 // J: pc = operand
	FnTrue  Fn = 4 // T: if a != 0, pc = operand
	FnFalse Fn = 5 // F: if a == 0, pc = operand
	FnCall  Fn = 6 // K: call a with frame at sp + operand
	FnExec  Fn = 7 // X: extended operation selected by operand
)

// Instruction word layout.
const (
	FnMask       UWord = 7
	FlagI        UWord = 1 << 3 // indirect
	FlagP        UWord = 1 << 4 // frame-relative
	FlagD        UWord = 1 << 5 // operand in the following word
	OperandShift       = 8
	InlineMax          = 0xff
)

const fnLetters = "LSAJTFKX"

// String returns the mnemonic letter of the function.
func (f Fn) String() string {
	if int(f) < len(fnLetters) {
		return fnLetters[f : f+1]
	}
	return fmt.Sprintf("FN(%d)", byte(f))
}

// FnForLetter maps an assembler letter to its function code.
func FnForLetter(c byte) (Fn, bool) {
	for i := 0; i < len(fnLetters); i++ {
		if fnLetters[i] == c {
			return Fn(i), true
		}
	}
	return 0, false
}

// Encode builds an instruction word. When operand fits the inline byte it is
// packed into the word; otherwise FlagD is set and the caller must emit the
// operand as the following word.
func Encode(fn Fn, flags UWord, operand int) (w Word, extra bool) {
	if operand >= 0 && operand <= InlineMax && flags&FlagD == 0 {
		return Word(UWord(fn) | flags | UWord(operand)<<OperandShift), false
	}
	return Word(UWord(fn) | flags | FlagD), true
}

// ExtOp selects an extended (X) operation.
type ExtOp int

const (
	XRv       ExtOp = 1  // a = m[a]
	XNeg      ExtOp = 2  // a = -a
	XNot      ExtOp = 3  // a = ~a
	XReturn   ExtOp = 4  // pc = m[sp+1]; sp = m[sp]
	XMul      ExtOp = 5  // a = b * a
	XDiv      ExtOp = 6  // a = b / a
	XRem      ExtOp = 7  // a = b % a
	XPlus     ExtOp = 8  // a = b + a
	XMinus    ExtOp = 9  // a = b - a
	XEq       ExtOp = 10 // a = b == a
	XNe       ExtOp = 11 // a = b != a
	XLs       ExtOp = 12 // a = b < a
	XGe       ExtOp = 13 // a = b >= a
	XGr       ExtOp = 14 // a = b > a
	XLe       ExtOp = 15 // a = b <= a
	XLshift   ExtOp = 16 // a = b << a
	XRshift   ExtOp = 17 // a = b >> a, logical
	XLogAnd   ExtOp = 18 // a = b & a
	XLogOr    ExtOp = 19 // a = b | a
	XNeqv     ExtOp = 20 // a = b ^ a
	XEqv      ExtOp = 21 // a = b ^ ~a
	XFinish   ExtOp = 22 // halt with status 0
	XSwitchOn ExtOp = 23 // multiway jump on a
)

var extOpNames = map[ExtOp]string{
	XRv:       "RV",
	XNeg:      "NEG",
	XNot:      "NOT",
	XReturn:   "RTRN",
	XMul:      "MULT",
	XDiv:      "DIV",
	XRem:      "REM",
	XPlus:     "PLUS",
	XMinus:    "MINUS",
	XEq:       "EQ",
	XNe:       "NE",
	XLs:       "LS",
	XGe:       "GE",
	XGr:       "GR",
	XLe:       "LE",
	XLshift:   "LSHIFT",
	XRshift:   "RSHIFT",
	XLogAnd:   "LOGAND",
	XLogOr:    "LOGOR",
	XNeqv:     "NEQV",
	XEqv:      "EQV",
	XFinish:   "FINISH",
	XSwitchOn: "SWITCHON",
}

// String returns the BCPL name of the operation.
func (x ExtOp) String() string {
	if name, ok := extOpNames[x]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(x))
}

// IsRelation returns true for the six comparisons.
func (x ExtOp) IsRelation() bool {
	return x >= XEq && x <= XLe
}

// AllExtOps returns every defined extended operation.
func AllExtOps() []ExtOp {
	ops := make([]ExtOp, 0, len(extOpNames))
	for x := XRv; x <= XSwitchOn; x++ {
		ops = append(ops, x)
	}
	return ops
}

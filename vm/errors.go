package vm

import "strconv"

// Errno identifies a fatal condition. The message text is part of the
// machine's observable behaviour and matches the classic interpreter.
type Errno int

// List of fatal conditions for Errno
const (
	NoInput = Errno(iota)
	NoOutput
	NoICFile
	InvalidOption
	DuplicateLabel
	BadCode
	UnsetLabel
	BadCh
	BadLabel
	NoMemory
	UnknownCall
	UnknownExec
	IntcodeError
	BadChangeCoC
	BadCurrCo
	BadCurrCoVal
	BadChangeCoSP
	BadChangeCoPC
)

var strError = []string{
	"NO INPUT",
	"NO OUTPUT",
	"NO ICFILE",
	"INVALID OPTION",
	"DUPLICATE LABEL",
	"BAD CODE AT P",
	"UNSET LABEL",
	"BAD CH",
	"BAD LABEL",
	"NO MEMORY",
	"UNKNOWN CALL",
	"UNKNOWN EXEC",
	"INTCODE ERROR AT PC",
	"BAD CHANGECO C",
	"BAD CURRCO",
	"BAD CURRCO VAL",
	"BAD CHANGECO SP",
	"BAD CHANGECO PC",
}

func (e Errno) Error() string {
	if int(e) < 0 || int(e) >= len(strError) {
		return "errno " + strconv.Itoa(int(e))
	}
	return strError[e]
}

// Error describes a fatal condition raised by the assembler or the
// interpreter. Code is the numeric context printed after the message; a zero
// Code prints the message alone.
type Error struct {
	Errno Errno // nature of the failure
	Code  int   // label, character, call number, or pc
	PC    Addr  // program counter of the failing instruction, if running
	Addr  Addr  // offending address when Errno is IntcodeError
}

func (e *Error) Error() string {
	msg := e.Errno.Error()
	if e.Code != 0 {
		msg += " #" + strconv.Itoa(e.Code)
	}
	return msg
}

// Is reports whether target is the same Errno, so callers can write
// errors.Is(err, vm.UnknownCall).
func (e *Error) Is(target error) bool {
	if n, ok := target.(Errno); ok {
		return e.Errno == n
	}
	return false
}

// NewError returns a fatal error with a numeric context.
func NewError(errno Errno, code int) *Error {
	return &Error{Errno: errno, Code: code}
}

func (v *VM) newError(errno Errno, code int) *Error {
	return &Error{Errno: errno, Code: code, PC: v.lastpc}
}

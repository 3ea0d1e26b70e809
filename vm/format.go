package vm

import "strconv"

const digits = "0123456789ABCDEF"

// writes writes the length-prefixed string at s.
func (v *VM) writes(s Addr) {
	base := int(s) * BytesPerWord
	n := int(v.mem.Byte(base))
	for i := 1; i <= n; i++ {
		v.streams.Wrch(Word(v.mem.Byte(base + i)))
	}
}

// writed writes n in decimal, right-justified in a field of width d.
func (v *VM) writed(n, d Word) {
	s := strconv.Itoa(int(n))
	for i := len(s); i < int(d); i++ {
		v.streams.Wrch(' ')
	}
	for i := 0; i < len(s); i++ {
		v.streams.Wrch(Word(s[i]))
	}
}

// writeoct writes the low d octal digits of n; at least one digit is
// always written.
func (v *VM) writeoct(n UWord, d int) {
	if d > 1 {
		v.writeoct(n>>3, d-1)
	}
	v.streams.Wrch(Word(digits[n&7]))
}

// writehex writes the low d hexadecimal digits of n.
func (v *VM) writehex(n UWord, d int) {
	if d > 1 {
		v.writehex(n>>4, d-1)
	}
	v.streams.Wrch(Word(digits[n&15]))
}

// decval returns the field width encoded by a format character: 0-9, then
// A-Z for 10 to 35. Anything else is 0.
func decval(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 0
}

// writef interprets the format string whose address is the first word of
// the argument vector at p. Each directive consumes the next argument:
//
//	%S  string      %C  character   %N  decimal
//	%IW decimal     %OW octal       %XW hexadecimal
//
// where W is a single width character. Directive letters may be upper or
// lower case. Any other character after % is written literally.
func (v *VM) writef(p Addr) {
	format := v.mem.Word(p).Addr()
	p++
	base := int(format) * BytesPerWord
	n := int(v.mem.Byte(base))
	next := func() Word {
		w := v.mem.Word(p)
		p++
		return w
	}
	for ss := 1; ss <= n; {
		c := v.mem.Byte(base + ss)
		ss++
		if c != '%' {
			v.streams.Wrch(Word(c))
			continue
		}
		c = v.mem.Byte(base + ss)
		ss++
		switch c {
		case 'S', 's':
			v.writes(next().Addr())
		case 'C', 'c':
			v.streams.Wrch(next())
		case 'O', 'o':
			w := next()
			v.writeoct(UWord(w), decval(v.mem.Byte(base+ss)))
			ss++
		case 'X', 'x':
			w := next()
			v.writehex(UWord(w), decval(v.mem.Byte(base+ss)))
			ss++
		case 'I', 'i':
			w := next()
			v.writed(w, Word(decval(v.mem.Byte(base+ss))))
			ss++
		case 'N', 'n':
			v.writed(next(), 0)
		default:
			v.streams.Wrch(Word(c))
		}
	}
}

// readn reads a signed decimal number from the current input. Leading
// blanks are skipped; the first character that is not a digit ends the
// number and is stored in GlobalTerminator for the caller to inspect.
func (v *VM) readn() Word {
	var c Word
	for {
		c = v.streams.Rdch()
		if c != ' ' && c != '\n' && c != '\t' {
			break
		}
	}
	neg := false
	switch c {
	case '-':
		neg = true
		c = v.streams.Rdch()
	case '+':
		c = v.streams.Rdch()
	}
	var sum Word
	for c >= '0' && c <= '9' {
		sum = sum*10 + (c - '0')
		c = v.streams.Rdch()
	}
	v.mem.SetWord(GlobalTerminator, c)
	if neg {
		return -sum
	}
	return sum
}

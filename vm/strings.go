package vm

// String returns the length-prefixed string stored at word address s.
func (v *VM) String(s Addr) string {
	return v.cstr(s)
}

func (v *VM) cstr(s Addr) string {
	base := int(s) * BytesPerWord
	n := int(v.mem.Byte(base))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = v.mem.Byte(base + 1 + i)
	}
	return string(buf)
}

// SetString stores str at word address s as a length-prefixed string and
// returns the number of words used. Strings longer than 255 bytes are
// truncated.
func (v *VM) SetString(s Addr, str string) int {
	if len(str) > 255 {
		str = str[:255]
	}
	base := int(s) * BytesPerWord
	v.mem.SetByte(base, byte(len(str)))
	for i := 0; i < len(str); i++ {
		v.mem.SetByte(base+1+i, str[i])
	}
	return len(str)/BytesPerWord + 1
}

// PackString packs the unpacked string at vector p (p[0] is the length,
// p[1..] one character per word) into the length-prefixed form at s, padding
// the last word with zero. It returns the index of the last word written.
func (v *VM) PackString(p, s Addr) Word {
	n := int(v.mem.Word(p))
	last := n / BytesPerWord
	v.mem.SetWord(s+Addr(last), 0)
	base := int(s) * BytesPerWord
	for i := 0; i <= n; i++ {
		v.mem.SetByte(base+i, byte(v.mem.Word(p+Addr(i))))
	}
	return Word(last)
}

// UnpackString expands the length-prefixed string at s into vector p, one
// byte per word, with the length in p[0].
func (v *VM) UnpackString(s, p Addr) {
	base := int(s) * BytesPerWord
	n := int(v.mem.Byte(base))
	for i := 0; i <= n; i++ {
		v.mem.SetWord(p+Addr(i), Word(v.mem.Byte(base+i)))
	}
}

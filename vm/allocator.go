package vm

// Vectors are carved downward from himem. Each block has a two word header
// immediately before its payload: the payload size, and the next block on
// the free list while the block is free. Blocks are never split or
// coalesced, so a block keeps the size it was carved with.

const vecHeader = 2

// Allocate returns the payload address of a vector of at least n words, or
// 0 if n <= 0 or memory is exhausted. The free list is searched first-fit
// before any new memory is carved.
func (v *VM) Allocate(n int) Addr {
	if n <= 0 {
		return 0
	}
	var prev Addr
	for cur := v.vecfree; cur != 0; {
		size := int(v.mem.Word(cur))
		next := v.mem.Word(cur + 1).Addr()
		if size >= n {
			if prev != 0 {
				v.mem.SetWord(prev+1, next.Word())
			} else {
				v.vecfree = next
			}
			log.Debugf("getvec %d: reused block %d of size %d", n, cur+vecHeader, size)
			return cur + vecHeader
		}
		prev, cur = cur, next
	}

	h := v.himem - Addr(n+vecHeader) + 1
	if h <= v.lomem {
		log.Debugf("getvec %d: no memory (himem %d, lomem %d)", n, v.himem, v.lomem)
		return 0
	}
	v.mem.SetWord(h, Word(n))
	v.mem.SetWord(h+1, 0)
	v.himem = h - 1
	log.Debugf("getvec %d: carved block %d", n, h+vecHeader)
	return h + vecHeader
}

// Free returns the vector at p to the head of the free list. Freeing 0 does
// nothing.
func (v *VM) Free(p Addr) {
	if p == 0 {
		return
	}
	h := p - vecHeader
	v.mem.SetWord(h+1, v.vecfree.Word())
	v.vecfree = h
	log.Debugf("freevec %d", p)
}

// FreeList returns the header addresses on the free list, head first.
func (v *VM) FreeList() []Addr {
	var list []Addr
	for cur := v.vecfree; cur != 0 && len(list) < v.mem.Len(); cur = v.mem.Word(cur + 1).Addr() {
		list = append(list, cur)
	}
	return list
}

package vm

import "testing"

func TestAllocateCarvesDownward(t *testing.T) {
	v, _ := newTestVM(t, "")
	top := v.HiMem()

	p := v.Allocate(10)
	if want := top - 12 + 1 + vecHeader; p != want {
		t.Fatalf("first vector at %d, want %d", p, want)
	}
	if got := v.Memory().Word(p - vecHeader); got != 10 {
		t.Errorf("header size = %d, want 10", got)
	}
	q := v.Allocate(5)
	if q >= p-vecHeader {
		t.Errorf("second vector %d overlaps first %d", q, p)
	}
	if v.HiMem() != q-vecHeader-1 {
		t.Errorf("himem = %d, want %d", v.HiMem(), q-vecHeader-1)
	}
}

func TestAllocateReusesFirstFit(t *testing.T) {
	v, _ := newTestVM(t, "")
	small := v.Allocate(3)
	big := v.Allocate(20)
	v.Free(big)
	v.Free(small)

	// small is at the head of the free list but too short
	if got := v.Allocate(8); got != big {
		t.Errorf("Allocate(8) = %d, want reused block %d", got, big)
	}
	if list := v.FreeList(); len(list) != 1 || list[0] != small-vecHeader {
		t.Errorf("free list = %v, want [%d]", list, small-vecHeader)
	}
	if got := v.Allocate(3); got != small {
		t.Errorf("Allocate(3) = %d, want reused block %d", got, small)
	}
	if len(v.FreeList()) != 0 {
		t.Errorf("free list = %v, want empty", v.FreeList())
	}
}

func TestAllocateFailure(t *testing.T) {
	v, _ := newTestVM(t, "")
	himem := v.HiMem()
	if p := v.Allocate(30000); p != 0 {
		t.Errorf("Allocate(30000) = %d, want 0", p)
	}
	if p := v.Allocate(0); p != 0 {
		t.Errorf("Allocate(0) = %d, want 0", p)
	}
	if v.HiMem() != himem {
		t.Errorf("failed allocation moved himem from %d to %d", himem, v.HiMem())
	}
	// memory is still usable afterwards
	if p := v.Allocate(4); p == 0 {
		t.Error("Allocate(4) failed after a failed large request")
	}
}

func TestAllocateExhaustsAboveLoMem(t *testing.T) {
	v, err := New(Config{WordCount: 500, Origin: 401, LabelCount: 10})
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for v.Allocate(8) != 0 {
		n++
	}
	if n == 0 {
		t.Fatal("no vector fitted")
	}
	if v.HiMem() < v.LoMem() {
		t.Errorf("himem %d fell below lomem %d", v.HiMem(), v.LoMem())
	}
}

func TestFreeZeroIgnored(t *testing.T) {
	v, _ := newTestVM(t, "")
	v.Free(0)
	if len(v.FreeList()) != 0 {
		t.Errorf("free list = %v after Free(0)", v.FreeList())
	}
}

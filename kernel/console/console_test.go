package console

import (
	"testing"
	"unsafe"
)

func newFakeVGA(t *testing.T) *VGA {
	t.Helper()
	backing := make([]uint16, width*height)
	v := &VGA{bufPtr: func(addr uintptr) unsafe.Pointer { return unsafe.Pointer(&backing[0]) }}
	v.fb = unsafe.Slice((*uint16)(v.bufPtr(0)), width*height)
	return v
}

func TestWriteAdvancesCursor(t *testing.T) {
	v := newFakeVGA(t)
	v.Write([]byte("AB"))

	if ch := v.fb[0] & 0xFF; ch != 'A' {
		t.Fatalf("expected 'A' at position 0, got %c", ch)
	}
	if ch := v.fb[1] & 0xFF; ch != 'B' {
		t.Fatalf("expected 'B' at position 1, got %c", ch)
	}
	if v.col != 2 || v.row != 0 {
		t.Fatalf("expected cursor at (2,0), got (%d,%d)", v.col, v.row)
	}
}

func TestWriteAppliesDefaultAttribute(t *testing.T) {
	v := newFakeVGA(t)
	v.Write([]byte("A"))

	if attr := v.fb[0] >> 8; attr != uint16(0x0F) {
		t.Fatalf("expected attribute 0x0F, got 0x%x", attr)
	}
}

func TestNewlineMovesToNextRow(t *testing.T) {
	v := newFakeVGA(t)
	v.Write([]byte("A\nB"))

	if v.row != 1 || v.col != 1 {
		t.Fatalf("expected cursor at (1,1), got (%d,%d)", v.col, v.row)
	}
	if ch := v.fb[width] & 0xFF; ch != 'B' {
		t.Fatalf("expected 'B' at start of row 1, got %c", ch)
	}
}

func TestWriteWrapsAtEndOfRow(t *testing.T) {
	v := newFakeVGA(t)
	line := make([]byte, width+1)
	for i := range line {
		line[i] = 'X'
	}
	v.Write(line)

	if v.row != 1 || v.col != 1 {
		t.Fatalf("expected wrap to row 1 col 1, got (%d,%d)", v.col, v.row)
	}
}

func TestWriteWrapsToTopAfterLastRow(t *testing.T) {
	v := newFakeVGA(t)
	v.row = height - 1
	v.Write([]byte("A\nB"))

	if v.row != 0 {
		t.Fatalf("expected row to wrap to 0, got %d", v.row)
	}
}

func TestClearBlanksBufferAndResetsCursor(t *testing.T) {
	v := newFakeVGA(t)
	v.Write([]byte("A\nBB"))

	v.Clear()

	if v.col != 0 || v.row != 0 {
		t.Fatalf("expected cursor reset to (0,0), got (%d,%d)", v.col, v.row)
	}
	for i, cell := range v.fb {
		if cell != defaultAttr|uint16(' ') {
			t.Fatalf("expected cell %d to be blanked, got 0x%x", i, cell)
		}
	}
}

func TestWriteNeverErrors(t *testing.T) {
	v := newFakeVGA(t)
	n, err := v.Write([]byte("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected n=5, got %d", n)
	}
}

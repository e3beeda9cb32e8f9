// Package console provides the kernel's only output path: a write-only
// character sink over the VGA text-mode buffer. Scrolling and color
// attributes are outside this core's scope; callers get a plain io.Writer
// that kfmt can be pointed at, plus a Clear used by the exception handler.
package console

import "unsafe"

const (
	width  = 80
	height = 25

	vgaBufferAddr = uintptr(0xB8000)

	defaultAttr = uint16(0x0F) << 8 // white on black
)

// VGA is a write-only io.Writer over the VGA text-mode framebuffer. Writes
// advance a running cursor left-to-right, top-to-bottom; '\n' moves to the
// start of the next row. Once the last row is filled, writing wraps back to
// the top rather than scrolling, since scrolling is explicitly out of
// scope for this core.
type VGA struct {
	fb     []uint16
	col    uint16
	row    uint16
	bufPtr func(addr uintptr) unsafe.Pointer
}

// New returns a VGA console bound to the fixed physical VGA buffer address.
func New() *VGA {
	v := &VGA{bufPtr: func(addr uintptr) unsafe.Pointer { return unsafe.Pointer(addr) }}
	v.fb = unsafe.Slice((*uint16)(v.bufPtr(vgaBufferAddr)), width*height)
	return v
}

// Clear blanks the framebuffer and resets the cursor to the top-left cell.
// It is the "clears the screen" half of the common exception handler's
// contract; ordinary output never needs it.
func (v *VGA) Clear() {
	for i := range v.fb {
		v.fb[i] = defaultAttr | uint16(' ')
	}
	v.col = 0
	v.row = 0
}

// Write implements io.Writer. It never returns an error.
func (v *VGA) Write(p []byte) (int, error) {
	for _, b := range p {
		v.putChar(b)
	}
	return len(p), nil
}

func (v *VGA) putChar(ch byte) {
	if ch == '\n' {
		v.col = 0
		v.row++
	} else {
		v.fb[uint16(v.row)*width+v.col] = defaultAttr | uint16(ch)
		v.col++
		if v.col >= width {
			v.col = 0
			v.row++
		}
	}

	if v.row >= height {
		v.row = 0
	}
}

package pic

import "testing"

type fakePorts struct {
	writes []struct {
		port uint16
		val  uint8
	}
	regs map[uint16]uint8
}

func newFakePorts() *fakePorts {
	return &fakePorts{regs: map[uint16]uint8{masterData: 0, slaveData: 0}}
}

func (f *fakePorts) outb(port uint16, val uint8) {
	f.writes = append(f.writes, struct {
		port uint16
		val  uint8
	}{port, val})
	f.regs[port] = val
}

func (f *fakePorts) inb(port uint16) uint8 {
	return f.regs[port]
}

func setup(t *testing.T) *fakePorts {
	t.Helper()
	f := newFakePorts()
	origOutb, origInb := outbFn, inbFn
	outbFn, inbFn = f.outb, f.inb
	t.Cleanup(func() { outbFn, inbFn = origOutb, origInb })
	return f
}

func TestRemapMasksEverything(t *testing.T) {
	f := setup(t)
	Remap()

	if f.regs[masterData] != 0xFF {
		t.Fatalf("expected master data 0xFF after remap, got 0x%x", f.regs[masterData])
	}
	if f.regs[slaveData] != 0xFF {
		t.Fatalf("expected slave data 0xFF after remap, got 0x%x", f.regs[slaveData])
	}
}

func TestUnmaskMasterIRQ(t *testing.T) {
	f := setup(t)
	f.regs[masterData] = 0xFF

	Unmask(0)
	if f.regs[masterData] != 0xFE {
		t.Fatalf("expected 0xFE after unmasking IRQ0, got 0x%x", f.regs[masterData])
	}

	Unmask(1)
	if f.regs[masterData] != 0xFC {
		t.Fatalf("expected 0xFC after unmasking IRQ0+IRQ1, got 0x%x", f.regs[masterData])
	}
}

func TestUnmaskSlaveIRQ(t *testing.T) {
	f := setup(t)
	f.regs[slaveData] = 0xFF

	Unmask(8)
	if f.regs[slaveData] != 0xFE {
		t.Fatalf("expected 0xFE after unmasking IRQ8, got 0x%x", f.regs[slaveData])
	}
}

func TestMaskSetsBit(t *testing.T) {
	f := setup(t)
	f.regs[masterData] = 0x00

	Mask(1)
	if f.regs[masterData] != 0x02 {
		t.Fatalf("expected 0x02 after masking IRQ1, got 0x%x", f.regs[masterData])
	}
}

func TestSendEOIMasterOnly(t *testing.T) {
	f := setup(t)
	SendEOI(1)

	if len(f.writes) != 1 || f.writes[0].port != masterCommand || f.writes[0].val != eoiCode {
		t.Fatalf("expected a single EOI to the master command port, got %+v", f.writes)
	}
}

func TestSendEOISlaveIRQSendsBoth(t *testing.T) {
	f := setup(t)
	SendEOI(9)

	if len(f.writes) != 2 {
		t.Fatalf("expected EOI to both controllers, got %+v", f.writes)
	}
	if f.writes[0].port != slaveCommand || f.writes[1].port != masterCommand {
		t.Fatalf("expected slave EOI before master EOI, got %+v", f.writes)
	}
}

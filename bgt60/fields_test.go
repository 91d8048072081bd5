package bgt60

import "testing"

func TestMainStrobes(t *testing.T) {
	m := Main(0).WithFrameStart(true).WithFIFOReset(true)
	if uint32(m) != 0b1001 {
		t.Fatalf("main = %#x, want 0x9", uint32(m))
	}
	if !m.FrameStart() || !m.FIFOReset() || m.SWReset() || m.FSMReset() {
		t.Errorf("unexpected strobes in %#x", uint32(m))
	}
	m = m.WithFrameStart(false)
	if m.FrameStart() {
		t.Error("frame_start still set")
	}
}

func TestMainFieldsDoNotOverlap(t *testing.T) {
	m := Main(0).
		WithTRWkup(0xFF).
		WithTRWkupMul(0xF).
		WithCWMode(true).
		WithSADCClkDiv(3).
		WithBGClkDiv(3).
		WithLoadStrength(3).
		WithLDOMode(true)
	if uint32(m) != 0xFFFFF0 {
		t.Fatalf("main = %#x, want 0xFFFFF0", uint32(m))
	}
	m = m.WithTRWkup(0x5A)
	if m.TRWkup() != 0x5A || m.TRWkupMul() != 0xF || !m.CWMode() {
		t.Errorf("neighbouring fields disturbed: %#x", uint32(m))
	}
	if m.SADCClkDiv() != 3 || m.BGClkDiv() != 3 || m.LoadStrength() != 3 || !m.LDOMode() {
		t.Errorf("upper fields disturbed: %#x", uint32(m))
	}
}

func TestChipIDLayout(t *testing.T) {
	id := ChipID(0x000300)
	if id.DigitalID() != 3 || id.RFID() != 0 {
		t.Errorf("digital=%d rf=%d, want 3/0", id.DigitalID(), id.RFID())
	}
	id = MakeChipID(0x1234, 0x56)
	if uint32(id) != 0x123456 {
		t.Errorf("MakeChipID = %#x", uint32(id))
	}
}

func TestSFCtlReservedBitsStayClear(t *testing.T) {
	s := SFCtl(0xFFFFFF).WithFIFOCRef(1023)
	if s.FIFOCRef() != 1023 {
		t.Errorf("cref = %d", s.FIFOCRef())
	}
	if uint32(s)&(0b11<<14) != 0 {
		t.Errorf("bits 15:14 set: %#x", uint32(s))
	}
	if uint32(s)>>19 != 0 {
		t.Errorf("bits 23:19 set: %#x", uint32(s))
	}
	if !s.MISOHSRead() || !s.LFSREnabled() || !s.PrefixEnabled() || !s.FIFOLPMode() {
		t.Errorf("control bits lost: %#x", uint32(s))
	}

	s = SFCtl(0).WithFIFOCRef(0xFFFF)
	if s.FIFOCRef() != 0x1FFF {
		t.Errorf("cref not truncated to 13 bits: %#x", s.FIFOCRef())
	}
	if s.FIFOLPMode() {
		t.Error("cref overflowed into fifo_lp_mode")
	}
}

func TestSFCtlLFSRToggle(t *testing.T) {
	s := SFCtl(0).WithFIFOCRef(7).WithMISOHSRead(true)
	on := s.WithLFSR(true)
	if !on.LFSREnabled() || on.FIFOCRef() != 7 || !on.MISOHSRead() {
		t.Errorf("enable lost fields: %#x", uint32(on))
	}
	if off := on.WithLFSR(false); off != s {
		t.Errorf("disable = %#x, want %#x", uint32(off), uint32(s))
	}
}

func TestFStatFlags(t *testing.T) {
	f := FStat(1<<23 | 1<<20 | 0x1234)
	if !f.Overflow() || !f.Empty() || f.Full() || f.Underflow() {
		t.Errorf("flags wrong for %#x", uint32(f))
	}
	if f.FillStatus() != 0x1234 {
		t.Errorf("fill = %#x", f.FillStatus())
	}
}

func TestStatCounters(t *testing.T) {
	s := Stat1(0xABC<<12 | 0x123)
	if s.FrameCount() != 0xABC || s.ShapeGroupCount() != 0x123 {
		t.Errorf("frame=%#x group=%#x", s.FrameCount(), s.ShapeGroupCount())
	}
	s0 := Stat0(0b101<<5 | 0b1011)
	if s0.PowerMode() != 5 || !s0.SADCReady() || !s0.MADCReady() || s0.MADCBGUp() || !s0.LDOReady() {
		t.Errorf("stat0 decode wrong for %#x", uint32(s0))
	}
}

func TestGSR0(t *testing.T) {
	tests := []struct {
		g    GSR0
		err  bool
		text string
	}{
		{0, false, "ok"},
		{GSR0MISOHSRead, false, "0x04[miso_hs_read]"},
		{GSR0ClkNumErr, true, "0x01[clk_num_err]"},
		{GSR0SPIBurstErr | GSR0FOUErr, true, "0x0A[spi_burst_err,fou_err]"},
		{0xF0, false, "ok"},
	}
	for _, tt := range tests {
		if got := tt.g.Err(); got != tt.err {
			t.Errorf("GSR0(%#x).Err() = %v, want %v", uint8(tt.g), got, tt.err)
		}
		if got := tt.g.String(); got != tt.text {
			t.Errorf("GSR0(%#x).String() = %q, want %q", uint8(tt.g), got, tt.text)
		}
	}
}

func TestFIFOBurstCommand(t *testing.T) {
	tests := []struct {
		fifo Register
		want uint32
	}{
		{FIFO_TR13C, 0xFFC00000},
		{FIFO_UTR11, 0xFFC80000},
	}
	for _, tt := range tests {
		cmd := fifoBurst(tt.fifo)
		if uint32(cmd) != tt.want {
			t.Errorf("fifoBurst(%s) = %#08x, want %#08x", tt.fifo, uint32(cmd), tt.want)
		}
		if cmd.Addr() != BURST || !cmd.Write() || cmd.SubAddr() != tt.fifo || cmd.BurstWrite() || cmd.Count() != 0 {
			t.Errorf("fifoBurst(%s) decodes wrong", tt.fifo)
		}
		var b [4]byte
		cmd.Put(b[:])
		if b != [4]byte{byte(tt.want >> 24), byte(tt.want >> 16), 0, 0} {
			t.Errorf("Put = % X", b)
		}
	}
}

func TestRegisterWord(t *testing.T) {
	w := RegisterWord(0xd1027ff)
	if w.Addr() != SFCTL {
		t.Errorf("addr = %s", w.Addr())
	}
	if w.Payload() != 0x1027ff {
		t.Errorf("payload = %#x", w.Payload())
	}
	if got := MakeRegisterWord(SFCTL, 0x1027ff); got != w {
		t.Errorf("MakeRegisterWord = %#x, want %#x", uint32(got), uint32(w))
	}
}

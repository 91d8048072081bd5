package bgt60

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"
)

// scriptBus records every transfer and answers from a queue of responses.
type scriptBus struct {
	sent      [][]byte
	responses [][]byte
	err       error
}

func (b *scriptBus) Transfer(buf []byte) error {
	b.sent = append(b.sent, append([]byte(nil), buf...))
	if b.err != nil {
		return b.err
	}
	if len(b.responses) > 0 {
		copy(buf, b.responses[0])
		b.responses = b.responses[1:]
	}
	return nil
}

func testDevice(bus Bus) *Device {
	return &Device{
		variant: TR13C,
		bus:     bus,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestReadRegisterFraming(t *testing.T) {
	bus := &scriptBus{responses: [][]byte{{0x04, 0x12, 0x34, 0x56}}}
	d := testDevice(bus)

	v, st, err := d.ReadRegister(STAT0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x123456 {
		t.Errorf("value = %#x", v)
	}
	if st != GSR0MISOHSRead {
		t.Errorf("status = %s", st)
	}
	if want := []byte{0xBA, 0, 0, 0}; !bytes.Equal(bus.sent[0], want) {
		t.Errorf("sent % X, want % X", bus.sent[0], want)
	}
}

func TestWriteRegisterFraming(t *testing.T) {
	bus := &scriptBus{}
	d := testDevice(bus)

	if _, err := d.WriteRegister(SFCTL, 0xFF123456); err != nil {
		t.Fatal(err)
	}
	if want := []byte{0x0D, 0x12, 0x34, 0x56}; !bytes.Equal(bus.sent[0], want) {
		t.Errorf("sent % X, want % X", bus.sent[0], want)
	}
}

func TestRegisterStatusError(t *testing.T) {
	bus := &scriptBus{responses: [][]byte{{byte(GSR0SPIBurstErr), 0xAA, 0xBB, 0xCC}}}
	d := testDevice(bus)

	v, st, err := d.ReadRegister(MAIN)
	if !errors.Is(err, KindStatus) {
		t.Fatalf("err = %v, want status error", err)
	}
	if v != 0 || st != GSR0SPIBurstErr {
		t.Errorf("v=%#x st=%s", v, st)
	}
	var e *Error
	if !errors.As(err, &e) || e.Status != GSR0SPIBurstErr || e.Reg != MAIN {
		t.Errorf("error detail = %+v", e)
	}
}

func TestTransportErrorWraps(t *testing.T) {
	cause := errors.New("spi: bus fault")
	d := testDevice(&scriptBus{err: cause})

	_, err := d.WriteRegister(MAIN, 0)
	if KindOf(err) != KindTransport {
		t.Fatalf("kind = %q", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Error("collaborator error not wrapped")
	}
}

func TestModifyPreservesOtherBits(t *testing.T) {
	bus := &scriptBus{responses: [][]byte{{0, 0x02, 0x07, 0xFF}}}
	d := testDevice(bus)

	if err := d.setFIFOLimit(2048); err != nil {
		t.Fatal(err)
	}
	if len(bus.sent) != 2 {
		t.Fatalf("transfers = %d, want 2", len(bus.sent))
	}
	// cref 2047 -> 1023, miso_hs_rd (bit 17) kept.
	if want := []byte{0x0D, 0x02, 0x03, 0xFF}; !bytes.Equal(bus.sent[1], want) {
		t.Errorf("write % X, want % X", bus.sent[1], want)
	}
}

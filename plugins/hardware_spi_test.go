package plugins

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/spi"
)

// invertConn answers every byte with its complement.
type invertConn struct {
	txs     int
	packets []spi.Packet
}

func (c *invertConn) String() string       { return "invert" }
func (c *invertConn) Duplex() conn.Duplex  { return conn.Full }
func (c *invertConn) Tx(w, r []byte) error { c.txs++; invert(w, r); return nil }

func (c *invertConn) TxPackets(p []spi.Packet) error {
	c.packets = append(c.packets, p...)
	for _, pk := range p {
		invert(pk.W, pk.R)
	}
	return nil
}

func invert(w, r []byte) {
	for i := range w {
		r[i] = ^w[i]
	}
}

func TestSPIDeviceTransferSingle(t *testing.T) {
	fc := &invertConn{}
	s := &SPIDevice{conn: fc, device: "fake"}
	buf := []byte{0x00, 0x0F, 0xF0}
	if err := s.Transfer(buf); err != nil {
		t.Fatal(err)
	}
	if fc.txs != 1 || len(fc.packets) != 0 {
		t.Fatalf("txs %d packets %d", fc.txs, len(fc.packets))
	}
	if !bytes.Equal(buf, []byte{0xFF, 0xF0, 0x0F}) {
		t.Fatalf("buf = % X", buf)
	}
}

func TestSPIDeviceTransferLimit(t *testing.T) {
	fc := &invertConn{}
	s := &SPIDevice{conn: fc, device: "fake", maxTx: 4096}

	if err := s.Transfer(make([]byte, 4096)); err != nil {
		t.Fatalf("transfer at the limit: %v", err)
	}
	err := s.Transfer(make([]byte, 9220))
	if !errors.Is(err, ErrTransferTooLarge) {
		t.Fatalf("expected ErrTransferTooLarge, got %v", err)
	}
	if !strings.Contains(err.Error(), "spidev.bufsiz") || !strings.Contains(err.Error(), "9220") {
		t.Errorf("error does not name the limit: %v", err)
	}
	if fc.txs != 1 || len(fc.packets) != 0 {
		t.Fatalf("txs %d packets %d", fc.txs, len(fc.packets))
	}

	unknown := &SPIDevice{conn: fc, device: "fake"}
	if err := unknown.CheckTransferSize(1 << 20); err != nil {
		t.Fatalf("unknown limit rejected a transfer: %v", err)
	}
}

func TestSPIDeviceClosed(t *testing.T) {
	s := &SPIDevice{device: "fake"}
	if err := s.Transfer(make([]byte, 4)); err == nil {
		t.Fatal("transfer on closed device succeeded")
	}
	if s.IsOpen() {
		t.Fatal("closed device reports open")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestGPIOEdgeLatch(t *testing.T) {
	g := &GPIOController{edges: make(chan struct{}, 1)}
	rising := gpiocdev.LineEvent{Type: gpiocdev.LineEventRisingEdge}

	g.handleEvent(rising)
	g.handleEvent(rising)
	g.handleEvent(gpiocdev.LineEvent{Type: gpiocdev.LineEventFallingEdge})

	if got := g.received.Load(); got != 2 {
		t.Fatalf("received = %d, want 2", got)
	}
	if got := g.dropped.Load(); got != 1 {
		t.Fatalf("coalesced = %d, want 1", got)
	}
	if len(g.edges) != 1 {
		t.Fatal("edge not latched")
	}
	g.Drain()
	if len(g.edges) != 0 {
		t.Fatal("edge survived Drain")
	}
	info := g.Info()
	if info["edges"] != uint64(2) {
		t.Fatalf("info = %v", info)
	}
}

func TestGPIOClosedLines(t *testing.T) {
	g := &GPIOController{edges: make(chan struct{}, 1)}
	if err := g.ResetPin().SetHigh(); err == nil {
		t.Fatal("SetHigh without a line succeeded")
	}
	if err := g.IRQPin().WaitForRisingEdge(context.Background()); err == nil {
		t.Fatal("wait without a line succeeded")
	}
	if _, err := g.IRQLevel(); err == nil {
		t.Fatal("IRQLevel without a line succeeded")
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
	if err := ValidateGPIOPin("gpiochip0", -1); err == nil {
		t.Fatal("negative pin accepted")
	}
}

package bgt60

import (
	"context"
	"time"

	"tinygo.org/x/drivers"
)

// Bus performs one full-duplex transaction in place: buf is shifted out and
// overwritten with what the chip shifted back. Chip select must stay
// asserted for the whole of buf.
type Bus interface {
	Transfer(buf []byte) error
}

// OutputPin is a push-pull digital output (the reset line).
type OutputPin interface {
	SetHigh() error
	SetLow() error
}

// InterruptPin is a digital input that can be awaited (the IRQ line).
// WaitForRisingEdge blocks until a low-to-high transition or until ctx is
// done.
type InterruptPin interface {
	WaitForRisingEdge(ctx context.Context) error
}

// Delayer blocks for at least the requested duration.
type Delayer interface {
	DelayNs(ns uint32)
	DelayMs(ms uint32)
}

// SleepDelay implements Delayer with time.Sleep.
type SleepDelay struct{}

func (SleepDelay) DelayNs(ns uint32) { time.Sleep(time.Duration(ns)) }
func (SleepDelay) DelayMs(ms uint32) { time.Sleep(time.Duration(ms) * time.Millisecond) }

// PinFunc adapts a level setter to OutputPin.
type PinFunc func(high bool) error

func (f PinFunc) SetHigh() error { return f(true) }
func (f PinFunc) SetLow() error  { return f(false) }

// DriversBus adapts a tinygo.org/x/drivers SPI bus (e.g. machine.SPI0) to
// Bus. Chip select is expected to be handled by the caller's wrapper or by
// hardware CS; Transfer issues exactly one Tx.
type DriversBus struct {
	SPI drivers.SPI

	tx []byte
}

// NewDriversBus wraps spi.
func NewDriversBus(spi drivers.SPI) *DriversBus {
	return &DriversBus{SPI: spi}
}

func (b *DriversBus) Transfer(buf []byte) error {
	// Not every Tx implementation tolerates w and r aliasing.
	if cap(b.tx) < len(buf) {
		b.tx = make([]byte, len(buf))
	}
	tx := b.tx[:len(buf)]
	copy(tx, buf)
	return b.SPI.Tx(tx, buf)
}

// Package bgt60 drives the Infineon BGT60TR13C and BGT60UTR11AIP FMCW radar
// front ends over SPI.
//
// The driver is built on four collaborators supplied by the caller: a
// full-duplex Bus, the reset OutputPin, the IRQ InterruptPin and a Delayer.
// A Device exclusively owns them and is not safe for concurrent use; every
// operation is one or more complete bus transactions issued in order.
//
// Typical use:
//
//	dev, err := bgt60.New(bgt60.TR13C, bus, rst, irq, bgt60.SleepDelay{})
//	err = dev.Configure(bgt60.LowFrameratePreset())
//	buf, samples, err := dev.NewFrameBuffers()
//	err = dev.Start()
//	for {
//		err = dev.AcquireFIFO(ctx, buf, samples)
//		...
//	}
//	err = dev.Stop()
package bgt60

import (
	"io"
	"log/slog"
)

// State is the position of a Device in its reset/configuration sequence.
type State uint8

const (
	StateUninitialized State = iota
	StateIdle
	StateConfigured
	StateArmed
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdle:
		return "idle"
	case StateConfigured:
		return "configured"
	case StateArmed:
		return "armed"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Device is a handle to one radar chip.
type Device struct {
	variant Variant
	bus     Bus
	rst     OutputPin
	irq     InterruptPin
	delay   Delayer
	log     *slog.Logger
	pow2    bool

	cfg   *Config
	state State

	// Scratch for single-register frames.
	frame [4]byte
}

// Option customizes a Device at construction.
type Option func(*Device)

// WithLogger sets the logger used for lifecycle events. The default
// discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.log = l
		}
	}
}

// WithPowerOfTwoFIFOLimit makes Configure reject frames whose sample count
// is not a power of two, on top of the even/capacity check.
func WithPowerOfTwoFIFOLimit() Option {
	return func(d *Device) { d.pow2 = true }
}

// New resets the chip through the reset pin, reads CHIP_ID and checks it
// against variant. The Device is only returned when all of that succeeds.
func New(variant Variant, bus Bus, rst OutputPin, irq InterruptPin, delay Delayer, opts ...Option) (*Device, error) {
	if !variant.Valid() {
		return nil, ValidateVariant(variant, 0, 0)
	}
	d := &Device{
		variant: variant,
		bus:     bus,
		rst:     rst,
		irq:     irq,
		delay:   delay,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(d)
	}

	if err := d.ResetHardware(); err != nil {
		return nil, err
	}
	digital, rf, err := d.ReadChipID()
	if err != nil {
		return nil, err
	}
	if err := ValidateVariant(variant, digital, rf); err != nil {
		d.log.Warn("bgt60 chip id mismatch", "variant", variant, "digital_id", digital, "rf_id", rf)
		return nil, err
	}
	d.state = StateIdle
	d.log.Info("bgt60 detected", "variant", variant, "digital_id", digital, "rf_id", rf)
	return d, nil
}

func (d *Device) Variant() Variant { return d.variant }
func (d *Device) State() State     { return d.state }

// Config returns the active configuration.
func (d *Device) Config() (Config, bool) {
	if d.cfg == nil {
		return Config{}, false
	}
	return *d.cfg, true
}

// ReadChipID reads and decodes CHIP_ID.
func (d *Device) ReadChipID() (digital uint16, rf uint8, err error) {
	v, _, err := d.ReadRegister(CHIP_ID)
	if err != nil {
		return 0, 0, err
	}
	id := ChipID(v)
	return id.DigitalID(), id.RFID(), nil
}

// Configure programs cfg. The FIFO limit is validated before any register
// is touched. After that the active configuration is dropped, the chip is
// soft-reset, all register words are written in order and the FIFO
// threshold is set; cfg becomes active only if every step succeeds.
func (d *Device) Configure(cfg Config) error {
	if err := cfg.CheckFIFOLimit(d.variant, d.pow2); err != nil {
		return err
	}

	d.cfg = nil
	d.state = StateIdle

	if err := d.ResetSoftware(); err != nil {
		return err
	}
	for i, w := range cfg.Registers {
		if _, err := d.WriteRegister(w.Addr(), w.Payload()); err != nil {
			d.log.Warn("bgt60 register write failed", "index", i, "word", w, "error", err)
			return err
		}
	}
	d.state = StateConfigured

	if err := d.setFIFOLimit(cfg.FIFOLimit()); err != nil {
		d.state = StateIdle
		return err
	}
	d.cfg = &cfg
	d.state = StateArmed
	d.log.Info("bgt60 configured", "shape", cfg.Shape(), "fifo_limit", cfg.FIFOLimit(), "frame_rate_hz", cfg.FrameRateHz())
	return nil
}

// setFIFOLimit sets SFCTL.fifo_cref so that IRQ fires once limit samples
// (limit/2 blocks) are buffered. Other SFCTL bits are preserved.
func (d *Device) setFIFOLimit(limit int) error {
	cref := uint16(limit/2 - 1)
	return d.modify(SFCTL, func(v uint32) uint32 {
		return uint32(SFCtl(v).WithFIFOCRef(cref))
	})
}

// EnableTestMode makes the chip fill the FIFO with the LFSR sequence of
// NextTestWord instead of ADC data.
func (d *Device) EnableTestMode() error {
	return d.setTestMode(true)
}

// DisableTestMode returns the FIFO to ADC data.
func (d *Device) DisableTestMode() error {
	return d.setTestMode(false)
}

func (d *Device) setTestMode(on bool) error {
	if err := d.modify(SFCTL, func(v uint32) uint32 {
		return uint32(SFCtl(v).WithLFSR(on))
	}); err != nil {
		return err
	}
	d.log.Info("bgt60 test mode", "enabled", on)
	return nil
}

// Start begins frame generation.
func (d *Device) Start() error {
	if d.cfg == nil {
		return &Error{Kind: KindNoConfiguration, Op: "start"}
	}
	if err := d.modify(MAIN, func(v uint32) uint32 {
		return uint32(Main(v).WithFrameStart(true))
	}); err != nil {
		return err
	}
	d.state = StateRunning
	d.log.Info("bgt60 started")
	return nil
}

// Stop halts frame generation by resetting the frame state machine. The
// configuration stays active.
func (d *Device) Stop() error {
	if err := d.ResetFSM(); err != nil {
		return err
	}
	if d.cfg != nil {
		d.state = StateConfigured
	} else {
		d.state = StateIdle
	}
	d.log.Info("bgt60 stopped")
	return nil
}

// Status is a snapshot of the read-only status registers.
type Status struct {
	Stat0 Stat0
	Stat1 Stat1
	FStat FStat
	GSR0  GSR0
}

// ReadStatus reads STAT0, STAT1 and the variant's FSTAT.
func (d *Device) ReadStatus() (Status, error) {
	var s Status
	v, _, err := d.ReadRegister(STAT0)
	if err != nil {
		return s, err
	}
	s.Stat0 = Stat0(v)
	if v, _, err = d.ReadRegister(STAT1); err != nil {
		return s, err
	}
	s.Stat1 = Stat1(v)
	if v, s.GSR0, err = d.ReadRegister(d.variant.FStat()); err != nil {
		return s, err
	}
	s.FStat = FStat(v)
	return s, nil
}

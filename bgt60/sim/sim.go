// Package sim is a register-level model of a BGT60 chip. It implements the
// bgt60 collaborator interfaces so the driver can run without hardware, in
// tests and in the daemon's simulate mode.
package sim

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/linht/bgt60/bgt60"
)

// Write is one register write observed on the bus.
type Write struct {
	Addr  bgt60.Register
	Value uint32
}

// Chip simulates one radar chip behind a bus.
type Chip struct {
	mu sync.Mutex

	variant bgt60.Variant
	regs    [128]uint32
	chipID  bgt60.ChipID

	// Number of MAIN reads for which sw_reset still reads back as set.
	// Negative never clears.
	SWResetPolls int
	swPending    int

	status     bgt60.GSR0   // returned on every transaction
	statusOnce []bgt60.GSR0 // consumed one per transaction, before status
	failOnce   []error      // consumed one per transaction

	frames  [][]uint16
	pattern uint16 // next LFSR word
	phase   float64

	// FrameInterval paces the IRQ line while running. Zero fires
	// immediately.
	FrameInterval time.Duration

	writes  []Write
	reads   []bgt60.Register
	bursts  int
	resets  int
	txCount int
}

// New returns a chip of the given variant reporting the given CHIP_ID.
func New(v bgt60.Variant, digital uint16, rf uint8) *Chip {
	c := &Chip{variant: v, chipID: bgt60.MakeChipID(digital, rf)}
	c.powerOn()
	return c
}

// NewTR13C returns a chip that passes the TR13C identity check.
func NewTR13C() *Chip { return New(bgt60.TR13C, 3, 3) }

func (c *Chip) powerOn() {
	c.regs = [128]uint32{}
	c.regs[bgt60.CHIP_ID] = uint32(c.chipID)
	c.pattern = bgt60.TestPatternSeed
	c.swPending = 0
}

// SetStatus sets the GSR0 byte returned by every following transaction.
func (c *Chip) SetStatus(st bgt60.GSR0) {
	c.mu.Lock()
	c.status = st
	c.mu.Unlock()
}

// StatusOnce queues GSR0 bytes returned by the next transactions, one each.
func (c *Chip) StatusOnce(st ...bgt60.GSR0) {
	c.mu.Lock()
	c.statusOnce = append(c.statusOnce, st...)
	c.mu.Unlock()
}

// FailOnce makes the next transactions fail with the given errors, one each.
func (c *Chip) FailOnce(errs ...error) {
	c.mu.Lock()
	c.failOnce = append(c.failOnce, errs...)
	c.mu.Unlock()
}

// PushFrame queues samples to be returned by the next burst read.
func (c *Chip) PushFrame(samples []uint16) {
	c.mu.Lock()
	c.frames = append(c.frames, append([]uint16(nil), samples...))
	c.mu.Unlock()
}

// Register returns the current value of addr.
func (c *Chip) Register(addr bgt60.Register) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[addr&0x7F]
}

// SetRegister sets addr directly, bypassing the bus. Read-only status
// registers can be preset this way.
func (c *Chip) SetRegister(addr bgt60.Register, v uint32) {
	c.mu.Lock()
	c.regs[addr&0x7F] = v & 0xFFFFFF
	c.mu.Unlock()
}

// Writes returns the register writes seen so far.
func (c *Chip) Writes() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Write(nil), c.writes...)
}

// Reads returns the registers read so far.
func (c *Chip) Reads() []bgt60.Register {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bgt60.Register(nil), c.reads...)
}

// Transactions returns the number of bus transfers.
func (c *Chip) Transactions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txCount
}

// Bursts returns the number of FIFO burst reads.
func (c *Chip) Bursts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bursts
}

// HardwareResets returns the number of reset pulses seen on the reset pin.
func (c *Chip) HardwareResets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

// ClearLog forgets recorded reads, writes and counters.
func (c *Chip) ClearLog() {
	c.mu.Lock()
	c.writes, c.reads = nil, nil
	c.txCount, c.bursts = 0, 0
	c.mu.Unlock()
}

// Running reports whether MAIN.frame_start is set.
func (c *Chip) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bgt60.Main(c.regs[bgt60.MAIN]).FrameStart()
}

func (c *Chip) nextStatus() bgt60.GSR0 {
	if len(c.statusOnce) > 0 {
		st := c.statusOnce[0]
		c.statusOnce = c.statusOnce[1:]
		return st
	}
	return c.status
}

// Transfer implements bgt60.Bus.
func (c *Chip) Transfer(buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txCount++
	if len(c.failOnce) > 0 {
		err := c.failOnce[0]
		c.failOnce = c.failOnce[1:]
		if err != nil {
			return err
		}
	}
	if len(buf) < 4 {
		return errors.New("sim: short transfer")
	}
	st := c.nextStatus()

	addr := bgt60.Register(buf[0] >> 1)
	write := buf[0]&1 == 1
	if addr == bgt60.BURST && write {
		c.burst(buf)
		buf[0] = byte(st)
		return nil
	}
	if len(buf) != 4 {
		return errors.New("sim: register transfer must be 4 bytes")
	}

	if write {
		v := uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
		c.writes = append(c.writes, Write{Addr: addr, Value: v})
		c.store(addr, v)
	} else {
		c.reads = append(c.reads, addr)
		v := c.load(addr)
		buf[1], buf[2], buf[3] = byte(v>>16), byte(v>>8), byte(v)
	}
	buf[0] = byte(st)
	return nil
}

func (c *Chip) load(addr bgt60.Register) uint32 {
	v := c.regs[addr&0x7F]
	if addr == bgt60.MAIN && c.swPending != 0 {
		v |= uint32(bgt60.Main(0).WithSWReset(true))
		if c.swPending > 0 {
			c.swPending--
		}
	}
	return v
}

func (c *Chip) store(addr bgt60.Register, v uint32) {
	switch addr {
	case bgt60.CHIP_ID, bgt60.STAT0, bgt60.STAT1:
		return // read-only
	case bgt60.MAIN:
		m := bgt60.Main(v)
		if m.SWReset() {
			c.powerOn()
			c.swPending = c.SWResetPolls
			return
		}
		if m.FIFOReset() {
			c.frames = nil
			c.pattern = bgt60.TestPatternSeed
		}
		if m.FSMReset() {
			m = m.WithFrameStart(false)
		}
		// Strobes self-clear.
		v = uint32(m.WithFIFOReset(false).WithFSMReset(false).WithSWReset(false))
	}
	c.regs[addr&0x7F] = v
}

func (c *Chip) frameLen(payload int) int {
	n := payload * 8 / 12
	cref := int(bgt60.SFCtl(c.regs[bgt60.SFCTL]).FIFOCRef())
	if limit := (cref + 1) * 2; cref > 0 && limit < n {
		n = limit
	}
	return n
}

func (c *Chip) burst(buf []byte) {
	cmd := bgt60.BurstCommand(uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3]))
	buf[1], buf[2], buf[3] = 0, 0, 0
	if cmd.SubAddr() != c.variant.FIFO() || cmd.BurstWrite() {
		return
	}
	c.bursts++
	payload := buf[4:]
	n := c.frameLen(len(payload))

	var samples []uint16
	switch {
	case len(c.frames) > 0:
		samples = c.frames[0]
		c.frames = c.frames[1:]
	case bgt60.SFCtl(c.regs[bgt60.SFCTL]).LFSREnabled():
		samples = c.lfsr(n)
	default:
		samples = c.synth(n)
	}
	if len(samples) > n {
		samples = samples[:n]
	}
	for i := range payload {
		payload[i] = 0
	}
	bgt60.Pack12(payload, samples)
}

// lfsr shifts out n test words. Bits 0, 1, 2 and 8 feed back into bit 11.
func (c *Chip) lfsr(n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		w := c.pattern
		out[i] = w
		c.pattern = ((w^w>>1^w>>2^w>>8)&1)<<11 | w>>1
	}
	return out
}

// synth produces a single beat tone around mid-scale, as a target at fixed
// range would.
func (c *Chip) synth(n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = uint16(2048 + 1200*math.Sin(c.phase))
		c.phase += 2 * math.Pi / 32
	}
	c.phase = math.Mod(c.phase, 2*math.Pi)
	return out
}

// hasData reports whether a burst would return queued or generated data.
func (c *Chip) hasData() bool {
	return len(c.frames) > 0 || bgt60.Main(c.regs[bgt60.MAIN]).FrameStart()
}

// ---------------- pins and delay ----------------

// ResetPin returns the chip's reset line. A low-to-high transition resets
// all registers.
func (c *Chip) ResetPin() *ResetPin { return &ResetPin{chip: c, high: true} }

// ResetPin is the simulated reset input.
type ResetPin struct {
	chip *Chip
	high bool
	// Fail, when set, is returned by the next level change.
	Fail error
}

func (p *ResetPin) set(high bool) error {
	if p.Fail != nil {
		err := p.Fail
		p.Fail = nil
		return err
	}
	if high && !p.high {
		p.chip.mu.Lock()
		p.chip.powerOn()
		p.chip.resets++
		p.chip.mu.Unlock()
	}
	p.high = high
	return nil
}

func (p *ResetPin) SetHigh() error { return p.set(true) }
func (p *ResetPin) SetLow() error  { return p.set(false) }

// IRQ returns the chip's interrupt line.
func (c *Chip) IRQ() *IRQPin { return &IRQPin{chip: c} }

// IRQPin raises an edge whenever a frame is available: immediately for
// queued frames, every FrameInterval while frame generation runs. Without
// data it blocks until ctx is done.
type IRQPin struct {
	chip *Chip
}

func (p *IRQPin) WaitForRisingEdge(ctx context.Context) error {
	p.chip.mu.Lock()
	queued := len(p.chip.frames) > 0
	ready := p.chip.hasData()
	interval := p.chip.FrameInterval
	p.chip.mu.Unlock()

	switch {
	case queued || (ready && interval == 0):
		return ctx.Err()
	case ready:
		t := time.NewTimer(interval)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		<-ctx.Done()
		return ctx.Err()
	}
}

// Delay records requested delays without sleeping.
type Delay struct {
	mu      sync.Mutex
	TotalNs uint64
	Calls   int
}

func (d *Delay) DelayNs(ns uint32) {
	d.mu.Lock()
	d.TotalNs += uint64(ns)
	d.Calls++
	d.mu.Unlock()
}

func (d *Delay) DelayMs(ms uint32) { d.DelayNs(ms * 1_000_000) }

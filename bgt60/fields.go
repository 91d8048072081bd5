package bgt60

import (
	"fmt"
	"strings"
)

const payloadMask = 0x00FF_FFFF

// field returns the width-bit value at shift in v.
func field(v uint32, shift, width uint) uint32 {
	return (v >> shift) & (1<<width - 1)
}

// setField stores x (truncated to width bits) at shift in v.
func setField(v uint32, shift, width uint, x uint32) uint32 {
	m := uint32(1<<width-1) << shift
	return v&^m | (x<<shift)&m
}

func bit(v uint32, n uint) bool { return v&(1<<n) != 0 }

func setBit(v uint32, n uint, on bool) uint32 {
	if on {
		return v | 1<<n
	}
	return v &^ (1 << n)
}

// ---------------- MAIN (0x00) ----------------

// Main is the MAIN control register. The reset bits are write strobes that
// the chip clears by itself.
//
//	b0 frame_start  b1 sw_reset  b2 fsm_reset  b3 fifo_reset
//	b4-11 tr_wkup   b12-15 tr_wkup_mul  b16 cw_mode
//	b17-18 sadc_clk_div  b19-20 bg_clk_div  b21-22 load_strength  b23 ldo_mode
type Main uint32

func (m Main) FrameStart() bool    { return bit(uint32(m), 0) }
func (m Main) SWReset() bool       { return bit(uint32(m), 1) }
func (m Main) FSMReset() bool      { return bit(uint32(m), 2) }
func (m Main) FIFOReset() bool     { return bit(uint32(m), 3) }
func (m Main) TRWkup() uint8       { return uint8(field(uint32(m), 4, 8)) }
func (m Main) TRWkupMul() uint8    { return uint8(field(uint32(m), 12, 4)) }
func (m Main) CWMode() bool        { return bit(uint32(m), 16) }
func (m Main) SADCClkDiv() uint8   { return uint8(field(uint32(m), 17, 2)) }
func (m Main) BGClkDiv() uint8     { return uint8(field(uint32(m), 19, 2)) }
func (m Main) LoadStrength() uint8 { return uint8(field(uint32(m), 21, 2)) }
func (m Main) LDOMode() bool       { return bit(uint32(m), 23) }

func (m Main) WithFrameStart(on bool) Main { return Main(setBit(uint32(m), 0, on)) }
func (m Main) WithSWReset(on bool) Main    { return Main(setBit(uint32(m), 1, on)) }
func (m Main) WithFSMReset(on bool) Main   { return Main(setBit(uint32(m), 2, on)) }
func (m Main) WithFIFOReset(on bool) Main  { return Main(setBit(uint32(m), 3, on)) }
func (m Main) WithTRWkup(v uint8) Main     { return Main(setField(uint32(m), 4, 8, uint32(v))) }
func (m Main) WithTRWkupMul(v uint8) Main  { return Main(setField(uint32(m), 12, 4, uint32(v))) }
func (m Main) WithCWMode(on bool) Main     { return Main(setBit(uint32(m), 16, on)) }
func (m Main) WithSADCClkDiv(v uint8) Main { return Main(setField(uint32(m), 17, 2, uint32(v))) }
func (m Main) WithBGClkDiv(v uint8) Main   { return Main(setField(uint32(m), 19, 2, uint32(v))) }
func (m Main) WithLoadStrength(v uint8) Main {
	return Main(setField(uint32(m), 21, 2, uint32(v)))
}
func (m Main) WithLDOMode(on bool) Main { return Main(setBit(uint32(m), 23, on)) }

// ---------------- CHIP_ID (0x02) ----------------

// ChipID is read-only: rf_id in bits 7:0, digital_id in bits 23:8.
type ChipID uint32

func (c ChipID) RFID() uint8       { return uint8(field(uint32(c), 0, 8)) }
func (c ChipID) DigitalID() uint16 { return uint16(field(uint32(c), 8, 16)) }

// MakeChipID encodes a CHIP_ID value. Used by the simulator.
func MakeChipID(digital uint16, rf uint8) ChipID {
	return ChipID(uint32(digital)<<8 | uint32(rf))
}

// ---------------- SFCTL (0x06) ----------------

// SFCtl controls the FIFO and the SPI data path.
//
//	b0-12 fifo_cref  b13 fifo_lp_mode  b14-15 reserved
//	b16 miso_hs_rd   b17 lfsr_en       b18 prefix_en   b19-23 reserved
type SFCtl uint32

const sfctlMask = (1<<19 - 1) &^ (0b11 << 14)

func (s SFCtl) FIFOCRef() uint16  { return uint16(field(uint32(s), 0, 13)) }
func (s SFCtl) FIFOLPMode() bool  { return bit(uint32(s), 13) }
func (s SFCtl) MISOHSRead() bool  { return bit(uint32(s), 16) }
func (s SFCtl) LFSREnabled() bool { return bit(uint32(s), 17) }
func (s SFCtl) PrefixEnabled() bool {
	return bit(uint32(s), 18)
}

func (s SFCtl) WithFIFOCRef(v uint16) SFCtl {
	return SFCtl(setField(uint32(s), 0, 13, uint32(v)) & sfctlMask)
}
func (s SFCtl) WithFIFOLPMode(on bool) SFCtl { return SFCtl(setBit(uint32(s), 13, on) & sfctlMask) }
func (s SFCtl) WithMISOHSRead(on bool) SFCtl { return SFCtl(setBit(uint32(s), 16, on) & sfctlMask) }
func (s SFCtl) WithLFSR(on bool) SFCtl       { return SFCtl(setBit(uint32(s), 17, on) & sfctlMask) }
func (s SFCtl) WithPrefix(on bool) SFCtl     { return SFCtl(setBit(uint32(s), 18, on) & sfctlMask) }

// ---------------- STAT0 (0x5D) ----------------

// Stat0 is read-only status of the ADCs and the power state machine.
type Stat0 uint32

func (s Stat0) SADCReady() bool { return bit(uint32(s), 0) }
func (s Stat0) MADCReady() bool { return bit(uint32(s), 1) }
func (s Stat0) MADCBGUp() bool  { return bit(uint32(s), 2) }
func (s Stat0) LDOReady() bool  { return bit(uint32(s), 3) }
func (s Stat0) PowerMode() uint8 {
	return uint8(field(uint32(s), 5, 3))
}
func (s Stat0) ChannelSet() uint8 { return uint8(field(uint32(s), 8, 3)) }
func (s Stat0) ShapeIndex() uint8 { return uint8(field(uint32(s), 11, 3)) }

// ---------------- STAT1 (0x03) ----------------

// Stat1 holds the shape-group and frame counters.
type Stat1 uint32

func (s Stat1) ShapeGroupCount() uint16 { return uint16(field(uint32(s), 0, 12)) }
func (s Stat1) FrameCount() uint16      { return uint16(field(uint32(s), 12, 12)) }

// ---------------- FSTAT ----------------

// FStat is the FIFO status register.
//
//	b0-13 fill_status (24-bit blocks)  b17 clk_num_err  b18 spi_burst_err
//	b19 fuf_err  b20 empty  b21 cref  b22 full  b23 fof_err
type FStat uint32

func (f FStat) FillStatus() uint16 { return uint16(field(uint32(f), 0, 14)) }
func (f FStat) ClkNumErr() bool    { return bit(uint32(f), 17) }
func (f FStat) SPIBurstErr() bool  { return bit(uint32(f), 18) }
func (f FStat) Underflow() bool    { return bit(uint32(f), 19) }
func (f FStat) Empty() bool        { return bit(uint32(f), 20) }
func (f FStat) CRef() bool         { return bit(uint32(f), 21) }
func (f FStat) Full() bool         { return bit(uint32(f), 22) }
func (f FStat) Overflow() bool     { return bit(uint32(f), 23) }

// ---------------- GSR0 ----------------

// GSR0 is the global status byte the chip shifts out first in every
// transaction.
//
//	b0 clk_num_err  b1 spi_burst_err  b2 miso_hs_read  b3 fou_err  b4-7 reserved
type GSR0 uint8

const (
	GSR0ClkNumErr   GSR0 = 1 << 0
	GSR0SPIBurstErr GSR0 = 1 << 1
	GSR0MISOHSRead  GSR0 = 1 << 2
	GSR0FOUErr      GSR0 = 1 << 3

	gsr0ErrMask = GSR0ClkNumErr | GSR0SPIBurstErr | GSR0FOUErr
	gsr0Mask    = 0x0F
)

func (g GSR0) Has(flag GSR0) bool { return g&flag != 0 }

func (g GSR0) ClkNumErr() bool   { return g.Has(GSR0ClkNumErr) }
func (g GSR0) SPIBurstErr() bool { return g.Has(GSR0SPIBurstErr) }
func (g GSR0) MISOHSRead() bool  { return g.Has(GSR0MISOHSRead) }
func (g GSR0) FIFOErr() bool     { return g.Has(GSR0FOUErr) }

// Err reports whether any error bit is set. MISO_HS_READ is informational.
func (g GSR0) Err() bool { return g&gsr0ErrMask != 0 }

func (g GSR0) String() string {
	if g&gsr0Mask == 0 {
		return "ok"
	}
	var parts []string
	if g.ClkNumErr() {
		parts = append(parts, "clk_num_err")
	}
	if g.SPIBurstErr() {
		parts = append(parts, "spi_burst_err")
	}
	if g.MISOHSRead() {
		parts = append(parts, "miso_hs_read")
	}
	if g.FIFOErr() {
		parts = append(parts, "fou_err")
	}
	return fmt.Sprintf("0x%02X[%s]", uint8(g), strings.Join(parts, ","))
}

// ---------------- Burst command ----------------

// BurstCommand is the 32-bit word that opens a burst transfer.
//
//	b31-25 addr  b24 rw  b23-17 sadr  b16 rwb  b15-9 nbursts  b8-0 padding
//
// nbursts = 0 bursts until CS is released.
type BurstCommand uint32

func (b BurstCommand) Addr() Register    { return Register(field(uint32(b), 25, 7)) }
func (b BurstCommand) Write() bool       { return bit(uint32(b), 24) }
func (b BurstCommand) SubAddr() Register { return Register(field(uint32(b), 17, 7)) }
func (b BurstCommand) BurstWrite() bool  { return bit(uint32(b), 16) }
func (b BurstCommand) Count() uint8      { return uint8(field(uint32(b), 9, 7)) }

func (b BurstCommand) WithAddr(r Register) BurstCommand {
	return BurstCommand(setField(uint32(b), 25, 7, uint32(r)))
}
func (b BurstCommand) WithWrite(on bool) BurstCommand {
	return BurstCommand(setBit(uint32(b), 24, on))
}
func (b BurstCommand) WithSubAddr(r Register) BurstCommand {
	return BurstCommand(setField(uint32(b), 17, 7, uint32(r)))
}
func (b BurstCommand) WithBurstWrite(on bool) BurstCommand {
	return BurstCommand(setBit(uint32(b), 16, on))
}
func (b BurstCommand) WithCount(n uint8) BurstCommand {
	return BurstCommand(setField(uint32(b), 9, 7, uint32(n)))
}

// Put serializes b big-endian into p[0:4].
func (b BurstCommand) Put(p []byte) {
	_ = p[3]
	p[0] = byte(b >> 24)
	p[1] = byte(b >> 16)
	p[2] = byte(b >> 8)
	p[3] = byte(b)
}

// fifoBurst is the command used for frame read-out: a burst-mode command
// (addr 0x7F, rw=1) reading from the FIFO until CS is released.
func fifoBurst(fifo Register) BurstCommand {
	return BurstCommand(0).
		WithAddr(BURST).
		WithWrite(true).
		WithSubAddr(fifo).
		WithBurstWrite(false).
		WithCount(0)
}

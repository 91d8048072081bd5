package bgt60

import (
	"fmt"
	"math/bits"
	"strings"
)

// NumRegisterWords is the length of the register list emitted by the vendor
// configuration tool.
const NumRegisterWords = 38

// Config is a complete radar configuration. The descriptive fields mirror
// the input of the vendor configuration tool and are used for frame shape
// and reporting; the chip itself is programmed from Registers only.
type Config struct {
	RXAntennas          uint8   `json:"rx_antennas" yaml:"rx_antennas"`
	TXAntennas          uint8   `json:"tx_antennas" yaml:"tx_antennas"`
	TXPowerLevel        uint8   `json:"tx_power_level" yaml:"tx_power_level"`
	IFGainDB            uint8   `json:"if_gain_db" yaml:"if_gain_db"`
	LowerFrequencyHz    uint64  `json:"lower_frequency_hz" yaml:"lower_frequency_hz"`
	UpperFrequencyHz    uint64  `json:"upper_frequency_hz" yaml:"upper_frequency_hz"`
	ChirpsPerFrame      uint8   `json:"num_chirps_per_frame" yaml:"num_chirps_per_frame"`
	SamplesPerChirp     uint16  `json:"num_samples_per_chirp" yaml:"num_samples_per_chirp"`
	ChirpRepetitionTime float64 `json:"chirp_repetition_time_s" yaml:"chirp_repetition_time_s"`
	FrameRepetitionTime float64 `json:"frame_repetition_time_s" yaml:"frame_repetition_time_s"`
	SampleRateHz        uint32  `json:"sample_rate_hz" yaml:"sample_rate_hz"`

	Registers [NumRegisterWords]RegisterWord `json:"registers" yaml:"-"`
}

// Shape returns the frame shape (antennas, chirps, samples).
func (c Config) Shape() FrameShape {
	return FrameShape{
		RX:      int(c.RXAntennas),
		Chirps:  int(c.ChirpsPerFrame),
		Samples: int(c.SamplesPerChirp),
	}
}

// FIFOLimit is the number of 12-bit samples in one frame.
func (c Config) FIFOLimit() int { return c.Shape().Len() }

// PayloadBytes is the packed size of one frame: ceil(12*limit/8).
func (c Config) PayloadBytes() int { return PackedLen(c.FIFOLimit()) }

// BufferLen is the size of the transfer buffer AcquireFIFO expects.
func (c Config) BufferLen() int { return burstHeaderLen + c.PayloadBytes() }

// ChirpRateHz and FrameRateHz are the reciprocal repetition times.
func (c Config) ChirpRateHz() float64 { return recip(c.ChirpRepetitionTime) }
func (c Config) FrameRateHz() float64 { return recip(c.FrameRepetitionTime) }

func recip(s float64) float64 {
	if s == 0 {
		return 0
	}
	return 1 / s
}

// CheckFIFOLimit validates the derived FIFO limit for v: it must be a
// positive even sample count whose half fits the variant FIFO. With pow2 set
// the limit must also be a power of two.
func (c Config) CheckFIFOLimit(v Variant, pow2 bool) error {
	limit := c.FIFOLimit()
	maxBlocks := v.MaxFIFOBlocks()
	fail := func(msg string) error {
		return &Error{Kind: KindInvalidFIFO, Op: "configure", Want: maxBlocks * 2, Got: limit, Msg: msg}
	}
	switch {
	case limit <= 0:
		return fail("empty frame")
	case limit%2 != 0:
		return fail("odd sample count")
	case limit/2 > maxBlocks:
		return fail(fmt.Sprintf("%d blocks exceed %s FIFO", limit/2, v))
	case pow2 && bits.OnesCount(uint(limit)) != 1:
		return fail("not a power of two")
	}
	return nil
}

// CheckRegisters verifies that every register word is a write to an
// addressable register and that none of them strobes a reset. Configure does
// not call it; it is meant for configurations from untrusted sources.
func (c Config) CheckRegisters() error {
	for i, w := range c.Registers {
		fail := func(msg string) error {
			return &Error{Kind: KindInvalidConfig, Op: "check_registers", Reg: w.Addr(), Msg: fmt.Sprintf("word %d (0x%08X): %s", i, uint32(w), msg)}
		}
		switch {
		case uint32(w)&(1<<24) == 0:
			return fail("write flag not set")
		case w.Addr() > MaxRegister:
			return fail("address out of range")
		case w.Addr() == CHIP_ID || w.Addr() == STAT0 || w.Addr() == STAT1:
			return fail("read-only register")
		case w.Addr() == MAIN && Main(w.Payload())&0b1111 != 0:
			return fail("MAIN word starts frames or strobes a reset")
		}
	}
	return nil
}

func (c Config) String() string {
	var sb strings.Builder
	shape := c.Shape()
	fmt.Fprintf(&sb, "Config{rx=%d tx=%d tx_power=%d if_gain=%ddB", c.RXAntennas, c.TXAntennas, c.TXPowerLevel, c.IFGainDB)
	fmt.Fprintf(&sb, " f=%d..%dHz", c.LowerFrequencyHz, c.UpperFrequencyHz)
	fmt.Fprintf(&sb, " chirp=%.2es (%.2eHz) frame=%.2es (%.2eHz)", c.ChirpRepetitionTime, c.ChirpRateHz(), c.FrameRepetitionTime, c.FrameRateHz())
	fmt.Fprintf(&sb, " fs=%dHz shape=%v samples=%d bytes=%d}", c.SampleRateHz, shape, shape.Len(), c.PayloadBytes())
	return sb.String()
}

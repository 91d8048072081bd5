package bgt60

import (
	"errors"
	"testing"
)

func shape(rx, chirps, samples int) Config {
	c := TestPreset()
	c.RXAntennas = uint8(rx)
	c.ChirpsPerFrame = uint8(chirps)
	c.SamplesPerChirp = uint16(samples)
	return c
}

func TestCheckFIFOLimit(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		v    Variant
		pow2 bool
		ok   bool
	}{
		{"low framerate", LowFrameratePreset(), TR13C, false, true},
		{"high framerate", HighFrameratePreset(), TR13C, false, true},
		{"high framerate pow2", HighFrameratePreset(), TR13C, true, false},
		{"single sample", shape(1, 1, 1), TR13C, false, false},
		{"empty", shape(0, 16, 128), TR13C, false, false},
		{"tr13c full", shape(1, 128, 128), TR13C, true, true},
		{"tr13c over", shape(2, 128, 128), TR13C, false, false},
		{"utr11 full", shape(1, 32, 128), UTR11AIP, true, true},
		{"utr11 over", shape(1, 64, 128), UTR11AIP, false, false},
	}
	for _, tt := range tests {
		err := tt.cfg.CheckFIFOLimit(tt.v, tt.pow2)
		if (err == nil) != tt.ok {
			t.Errorf("%s: err = %v", tt.name, err)
		}
		if err != nil && !errors.Is(err, KindInvalidFIFO) {
			t.Errorf("%s: kind = %q", tt.name, KindOf(err))
		}
	}
}

func TestConfigSizes(t *testing.T) {
	c := LowFrameratePreset()
	if c.FIFOLimit() != 2048 {
		t.Errorf("limit = %d", c.FIFOLimit())
	}
	if c.PayloadBytes() != 3072 || c.BufferLen() != 3076 {
		t.Errorf("payload=%d buffer=%d", c.PayloadBytes(), c.BufferLen())
	}
	if r := c.FrameRateHz(); r < 9.99 || r > 10.0 {
		t.Errorf("frame rate = %f", r)
	}
	if (Config{}).ChirpRateHz() != 0 {
		t.Error("zero repetition time should give zero rate")
	}
}

func TestPresetRegisterLists(t *testing.T) {
	for name, mk := range Presets {
		c := mk()
		if err := c.CheckFIFOLimit(TR13C, false); err != nil {
			t.Errorf("%s: %v", name, err)
		}
		if c.Registers[0].Addr() != MAIN {
			t.Errorf("%s: first word targets %s", name, c.Registers[0].Addr())
		}
		for i, w := range c.Registers {
			if uint32(w)&(1<<24) == 0 {
				t.Errorf("%s: word %d (%#x) lacks write flag", name, i, uint32(w))
			}
			if Main(w.Payload()).SWReset() && w.Addr() == MAIN {
				t.Errorf("%s: word %d triggers a reset", name, i)
			}
		}
	}
}

func TestCheckRegisters(t *testing.T) {
	for name, mk := range Presets {
		if err := mk().CheckRegisters(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}

	tests := []struct {
		name string
		word RegisterWord
	}{
		{"no write flag", RegisterWord(uint32(MakeRegisterWord(ADC0, 1)) &^ (1 << 24))},
		{"sw reset", MakeRegisterWord(MAIN, uint32(Main(0).WithSWReset(true)))},
		{"frame start", MakeRegisterWord(MAIN, uint32(Main(0).WithFrameStart(true)))},
		{"read only", MakeRegisterWord(CHIP_ID, 0)},
		{"out of range", MakeRegisterWord(BURST, 0)},
	}
	for _, tt := range tests {
		c := TestPreset()
		c.Registers[5] = tt.word
		if err := c.CheckRegisters(); !errors.Is(err, KindInvalidConfig) {
			t.Errorf("%s: err = %v", tt.name, err)
		}
	}
}

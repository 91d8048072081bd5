package bgt60

// Register lists below were generated by the vendor configuration tool for
// the BGT60TR13C.

// TestPreset is a single-antenna, single-chirp frame of 128 samples at
// ~10 frames/s.
func TestPreset() Config {
	return Config{
		RXAntennas:          1,
		TXAntennas:          1,
		TXPowerLevel:        31,
		IFGainDB:            60,
		LowerFrequencyHz:    61020099000,
		UpperFrequencyHz:    61479903000,
		ChirpsPerFrame:      1,
		SamplesPerChirp:     128,
		ChirpRepetitionTime: 6.21125e-05,
		FrameRepetitionTime: 0.0998265,
		SampleRateHz:        2352941,
		Registers: [NumRegisterWords]RegisterWord{
			0x11e8270, 0x3088210, 0x9e967fd, 0xb0805b4, 0xd1027ff, 0xf010700, 0x11000000,
			0x13000000, 0x15000000, 0x17000be0, 0x19000000, 0x1b000000, 0x1d000000, 0x1f000b60,
			0x21103c51, 0x231ff41f, 0x25006f7b, 0x2d000490, 0x3b000480, 0x49000480, 0x57000480,
			0x5911be0e, 0x5b678c0a, 0x5d000000, 0x5f787e1e, 0x61f5208a, 0x630000a4, 0x65000252,
			0x67000080, 0x69000000, 0x6b000000, 0x6d000000, 0x6f093910, 0x7f000100, 0x8f000100,
			0x9f000100, 0xad000000, 0xb7000000,
		},
	}
}

// LowFrameratePreset is one antenna, 16 chirps of 128 samples at ~10
// frames/s (a 2048-sample frame).
func LowFrameratePreset() Config {
	return Config{
		RXAntennas:          1,
		TXAntennas:          1,
		TXPowerLevel:        31,
		IFGainDB:            60,
		LowerFrequencyHz:    61020099000,
		UpperFrequencyHz:    61479903000,
		ChirpsPerFrame:      16,
		SamplesPerChirp:     128,
		ChirpRepetitionTime: 6.99625e-05,
		FrameRepetitionTime: 0.100057,
		SampleRateHz:        2352941,
		Registers: [NumRegisterWords]RegisterWord{
			0x11e8270, 0x3088210, 0x9e967fd, 0xb0805b4, 0xd1027ff, 0xf010700, 0x11000000,
			0x13000000, 0x15000000, 0x17000be0, 0x19000000, 0x1b000000, 0x1d000000, 0x1f000b60,
			0x21103c51, 0x231ff41f, 0x25006f7b, 0x2d000490, 0x3b000480, 0x49000480, 0x57000480,
			0x5911be0e, 0x5b677c0a, 0x5d00f000, 0x5f787e1e, 0x61f5208a, 0x630000a4, 0x65000252,
			0x67000080, 0x69000000, 0x6b000000, 0x6d000000, 0x6f093910, 0x7f000100, 0x8f000100,
			0x9f000100, 0xad000000, 0xb7000000,
		},
	}
}

// HighFrameratePreset uses all three receivers, 16 chirps of 128 samples at
// ~200 frames/s.
func HighFrameratePreset() Config {
	return Config{
		RXAntennas:          3,
		TXAntennas:          1,
		TXPowerLevel:        31,
		IFGainDB:            60,
		LowerFrequencyHz:    61020099000,
		UpperFrequencyHz:    61479903000,
		ChirpsPerFrame:      16,
		SamplesPerChirp:     128,
		ChirpRepetitionTime: 6.99625e-05,
		FrameRepetitionTime: 0.0050039,
		SampleRateHz:        2352941,
		Registers: [NumRegisterWords]RegisterWord{
			0x11e8270, 0x3088210, 0x9e967fd, 0xb0805b4, 0xd1027ff, 0xf010700, 0x11000000,
			0x13000000, 0x15000000, 0x17000be0, 0x19000000, 0x1b000000, 0x1d000000, 0x1f000b60,
			0x21130c51, 0x234ff41f, 0x25006f7b, 0x2d000490, 0x3b000480, 0x49000480, 0x57000480,
			0x5911be0e, 0x5b3ef40a, 0x5d00f000, 0x5f787e1e, 0x61f5208a, 0x630000a4, 0x65000252,
			0x67000080, 0x69000000, 0x6b000000, 0x6d000000, 0x6f093910, 0x7f000100, 0x8f000100,
			0x9f000100, 0xad000000, 0xb7000000,
		},
	}
}

// Presets maps preset names to their constructors.
var Presets = map[string]func() Config{
	"test":           TestPreset,
	"low_framerate":  LowFrameratePreset,
	"high_framerate": HighFrameratePreset,
}

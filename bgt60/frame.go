package bgt60

import "fmt"

// FrameShape is the logical layout of one frame. The raw sample stream is
// interleaved by antenna, so for rx antennas the flat index of
// (antenna a, chirp c, sample s) is c*RX*Samples + s*RX + a.
type FrameShape struct {
	RX      int `json:"rx"`
	Chirps  int `json:"chirps"`
	Samples int `json:"samples"`
}

// Len is the number of samples in a frame.
func (f FrameShape) Len() int { return f.RX * f.Chirps * f.Samples }

// Strides returns the flat-index step of the antenna, chirp and sample axes.
func (f FrameShape) Strides() [3]int {
	return [3]int{1, f.RX * f.Samples, f.RX}
}

// Index returns the flat index of (antenna, chirp, sample).
func (f FrameShape) Index(antenna, chirp, sample int) int {
	st := f.Strides()
	return antenna*st[0] + chirp*st[1] + sample*st[2]
}

func (f FrameShape) String() string {
	return fmt.Sprintf("[%d %d %d]", f.RX, f.Chirps, f.Samples)
}

// Unpack12 extracts len(out) 12-bit samples from payload. Every 3 bytes hold
// two samples: the even sample is the high 12 bits of the first two bytes,
// the odd sample the low 12 bits of the last two. payload must hold at least
// PackedLen(len(out)) bytes; Unpack12 panics on a shorter payload.
//
//	byte:  |  b0      |  b1      |  b2      |
//	       | s0[11:4] | s0[3:0] s1[11:8] | s1[7:0] |
func Unpack12(payload []byte, out []uint16) {
	for i := range out {
		o := (i * 12) / 8
		hi, lo := uint16(payload[o]), uint16(payload[o+1])
		if i&1 == 0 {
			out[i] = hi<<4 | lo>>4
		} else {
			out[i] = (hi&0x0F)<<8 | lo
		}
	}
}

// Pack12 is the inverse of Unpack12. Only the low 12 bits of each sample are
// used. dst must hold at least ceil(12*len(samples)/8) bytes.
func Pack12(dst []byte, samples []uint16) {
	for i := 0; i < len(samples); i += 2 {
		a := samples[i] & 0x0FFF
		var b uint16
		if i+1 < len(samples) {
			b = samples[i+1] & 0x0FFF
		}
		o := i / 2 * 3
		dst[o] = byte(a >> 4)
		if i+1 < len(samples) {
			dst[o+1] = byte(a<<4) | byte(b>>8)
			dst[o+2] = byte(b)
		} else {
			dst[o+1] = byte(a << 4)
		}
	}
}

// PackedLen is ceil(12*n/8).
func PackedLen(n int) int { return (n*12 + 7) / 8 }

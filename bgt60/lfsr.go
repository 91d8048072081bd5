package bgt60

import "fmt"

// TestPatternSeed is the first word the chip emits after test mode is
// enabled and the FIFO is reset.
const TestPatternSeed uint16 = 0x0001

// NextTestWord advances the 12-bit LFSR the chip uses to fill the FIFO in
// test mode (SFCTL.lfsr_en). The taps are bits 0, 1, 2 and 8, shifted up
// and masked to bit 11, then or-ed with the word shifted right by one. The
// sequence has period 4095 from any non-zero seed.
func NextTestWord(w uint16) uint16 {
	w &= 0x0FFF
	return (w<<11^w<<10^w<<9^w<<3)&0x0800 | w>>1
}

// TestPattern iterates the LFSR sequence from a seed.
type TestPattern struct {
	word uint16
}

func NewTestPattern(seed uint16) *TestPattern { return &TestPattern{word: seed & 0x0FFF} }

// Next returns the current word and advances.
func (p *TestPattern) Next() uint16 {
	w := p.word
	p.word = NextTestWord(w)
	return w
}

// Fill writes the next len(dst) words to dst.
func (p *TestPattern) Fill(dst []uint16) {
	for i := range dst {
		dst[i] = p.Next()
	}
}

// PatternMismatchError reports the first sample that deviates from the
// expected test sequence.
type PatternMismatchError struct {
	Index     int
	Want, Got uint16
}

func (e *PatternMismatchError) Error() string {
	return fmt.Sprintf("bgt60: test pattern mismatch at sample %d: want 0x%03X, got 0x%03X", e.Index, e.Want, e.Got)
}

// CheckTestPattern compares samples against the sequence starting at seed.
// It returns the word expected after the last sample, so consecutive frames
// can be checked by chaining the result.
func CheckTestPattern(samples []uint16, seed uint16) (uint16, error) {
	w := seed & 0x0FFF
	for i, s := range samples {
		if s != w {
			return w, &PatternMismatchError{Index: i, Want: w, Got: s}
		}
		w = NextTestWord(w)
	}
	return w, nil
}

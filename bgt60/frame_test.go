package bgt60

import (
	"bytes"
	"testing"
)

func TestUnpack12(t *testing.T) {
	payload := []byte{0x0A, 0xB0, 0xCD, 0xFF, 0xF0, 0x01}
	out := make([]uint16, 4)
	Unpack12(payload, out)
	want := []uint16{0x0AB, 0x0CD, 0xFFF, 0x001}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d = %#03x, want %#03x", i, out[i], want[i])
		}
	}
}

func TestPackUnpackAllValues(t *testing.T) {
	samples := make([]uint16, 4096)
	for i := range samples {
		samples[i] = uint16(i)
	}
	buf := make([]byte, PackedLen(len(samples)))
	Pack12(buf, samples)
	if len(buf) != 6144 {
		t.Fatalf("packed len = %d", len(buf))
	}
	got := make([]uint16, len(samples))
	Unpack12(buf, got)
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d = %#03x, want %#03x", i, got[i], samples[i])
		}
	}
}

func TestPackOddLength(t *testing.T) {
	buf := make([]byte, PackedLen(3))
	if len(buf) != 5 {
		t.Fatalf("PackedLen(3) = %d, want 5", len(buf))
	}
	Pack12(buf, []uint16{0xABC, 0xDEF, 0x123})
	if want := []byte{0xAB, 0xCD, 0xEF, 0x12, 0x30}; !bytes.Equal(buf, want) {
		t.Errorf("packed = % X, want % X", buf, want)
	}
}

func TestUnpackPayloadLength(t *testing.T) {
	out := make([]uint16, 3)
	Unpack12([]byte{0xAB, 0xCD, 0xEF, 0x12, 0x30}, out)
	if out[0] != 0xABC || out[1] != 0xDEF || out[2] != 0x123 {
		t.Fatalf("out = %03X", out)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("short payload did not panic")
		}
	}()
	Unpack12(make([]byte, PackedLen(3)-1), out)
}

func TestPackIgnoresHighBits(t *testing.T) {
	buf := make([]byte, 3)
	Pack12(buf, []uint16{0xFABC, 0xFDEF})
	if want := []byte{0xAB, 0xCD, 0xEF}; !bytes.Equal(buf, want) {
		t.Errorf("packed = % X, want % X", buf, want)
	}
}

func TestFrameShapeIndex(t *testing.T) {
	f := FrameShape{RX: 3, Chirps: 16, Samples: 128}
	if f.Len() != 6144 {
		t.Errorf("len = %d", f.Len())
	}
	if st := f.Strides(); st != [3]int{1, 384, 3} {
		t.Errorf("strides = %v", st)
	}
	// Interleaved by antenna: consecutive raw samples cycle through RX.
	if f.Index(0, 0, 1) != 3 || f.Index(2, 0, 0) != 2 || f.Index(1, 2, 5) != 1+2*384+5*3 {
		t.Error("index mapping wrong")
	}
	seen := make(map[int]bool, f.Len())
	for a := 0; a < f.RX; a++ {
		for c := 0; c < f.Chirps; c++ {
			for s := 0; s < f.Samples; s++ {
				i := f.Index(a, c, s)
				if i < 0 || i >= f.Len() || seen[i] {
					t.Fatalf("index (%d,%d,%d) = %d out of range or duplicate", a, c, s, i)
				}
				seen[i] = true
			}
		}
	}
}

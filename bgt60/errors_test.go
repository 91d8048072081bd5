package bgt60

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("configure radar: %w", &Error{Kind: KindResetTimeout, Op: "reset_software"})
	if KindOf(err) != KindResetTimeout {
		t.Errorf("KindOf = %q", KindOf(err))
	}
	if !errors.Is(err, KindResetTimeout) || errors.Is(err, KindStatus) {
		t.Error("errors.Is on Kind misbehaves")
	}
	if KindOf(errors.New("other")) != "" {
		t.Error("foreign error has a kind")
	}
	if KindOf(fmt.Errorf("x: %w", KindPin)) != KindPin {
		t.Error("bare Kind not recognised")
	}
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{statusErr("read_register", MAIN, GSR0ClkNumErr), "bgt60: read_register: status (reg MAIN, gsr0 0x01[clk_num_err])"},
		{sizeErr("acquire_fifo", "output samples", 2048, 10), "bgt60: acquire_fifo: buffer_size_mismatch (want 2048, got 10): output samples"},
		{pinErr("reset_hardware", "reset", errors.New("line busy")), "bgt60: reset_hardware: pin: reset: line busy"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("got  %q\nwant %q", got, tt.want)
		}
	}
	fifo := TestPreset()
	fifo.SamplesPerChirp = 1
	if err := fifo.CheckFIFOLimit(TR13C, false); err == nil || !strings.Contains(err.Error(), "odd sample count") {
		t.Errorf("fifo error = %v", err)
	}
}

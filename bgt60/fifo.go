package bgt60

import (
	"context"
)

// burstHeaderLen is the size of the burst command that precedes FIFO data
// in an acquisition transfer.
const burstHeaderLen = 4

// NewFrameBuffers allocates a transfer buffer and a sample slice sized for
// the active configuration.
func (d *Device) NewFrameBuffers() ([]byte, []uint16, error) {
	if d.cfg == nil {
		return nil, nil, &Error{Kind: KindNoConfiguration, Op: "new_frame_buffers"}
	}
	return make([]byte, d.cfg.BufferLen()), make([]uint16, d.cfg.FIFOLimit()), nil
}

// AcquireFIFO waits for the IRQ line (FIFO threshold reached), reads one
// frame with a single burst transfer and unpacks it into out.
//
// buf must be exactly Config.BufferLen bytes and out exactly
// Config.FIFOLimit samples. The IRQ wait is the only place this call
// blocks; it ends only on the edge or when ctx is done. Once the transfer
// has started it runs to completion regardless of ctx.
//
// On a GSR0 error the contents of out are unspecified.
func (d *Device) AcquireFIFO(ctx context.Context, buf []byte, out []uint16) error {
	const op = "acquire_fifo"
	if d.cfg == nil {
		return &Error{Kind: KindNoConfiguration, Op: op}
	}
	if want := d.cfg.BufferLen(); len(buf) != want {
		return sizeErr(op, "command buffer", want, len(buf))
	}
	if want := d.cfg.FIFOLimit(); len(out) != want {
		return sizeErr(op, "output samples", want, len(out))
	}

	if err := d.irq.WaitForRisingEdge(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return pinErr(op, "irq", err)
	}

	fifo := d.variant.FIFO()
	fifoBurst(fifo).Put(buf)
	if err := d.bus.Transfer(buf); err != nil {
		return transportErr(op, fifo, err)
	}

	st := GSR0(buf[0])
	if st.Err() || st.FIFOErr() {
		d.log.Warn("bgt60 fifo read status error", "gsr0", st)
		return statusErr(op, fifo, st)
	}

	Unpack12(buf[burstHeaderLen:], out)
	return nil
}

package bgt60

// Datasheet timings.
const (
	tCSBRes    = 100 // ns, CS high before reset
	tRes       = 100 // ns, reset low pulse
	tCSARes    = 100 // ns, CS high after reset
	tSWReset   = 100 // ns, after the sw_reset strobe
	swPollMs   = 10
	swPolls    = 5
	swSettleMs = 10
)

// ResetHardware pulses the reset line low. The line idles high.
func (d *Device) ResetHardware() error {
	if err := d.rst.SetHigh(); err != nil {
		return pinErr("reset_hardware", "reset", err)
	}
	d.delay.DelayNs(tCSBRes)
	if err := d.rst.SetLow(); err != nil {
		return pinErr("reset_hardware", "reset", err)
	}
	d.delay.DelayNs(tRes)
	if err := d.rst.SetHigh(); err != nil {
		return pinErr("reset_hardware", "reset", err)
	}
	d.delay.DelayNs(tCSARes)
	d.log.Debug("bgt60 hardware reset")
	return nil
}

// ResetSoftware strobes MAIN.sw_reset and polls until the chip clears it.
// The reset takes a device-dependent time, so MAIN is polled up to five
// times with 10 ms between polls; a poll that returns a GSR0 error counts as
// not yet cleared. A further 10 ms settle delay follows in every case.
func (d *Device) ResetSoftware() error {
	if _, err := d.WriteRegister(MAIN, uint32(Main(0).WithSWReset(true))); err != nil {
		return err
	}
	d.delay.DelayNs(tSWReset)

	cleared := false
	for i := 0; i < swPolls && !cleared; i++ {
		if i > 0 {
			d.delay.DelayMs(swPollMs)
		}
		v, _, err := d.ReadRegister(MAIN)
		switch {
		case err == nil && !Main(v).SWReset():
			cleared = true
		case err != nil && KindOf(err) != KindStatus:
			return err
		}
	}
	d.delay.DelayMs(swSettleMs)

	if !cleared {
		return &Error{Kind: KindResetTimeout, Op: "reset_software", Reg: MAIN, Got: swPolls}
	}
	d.log.Debug("bgt60 software reset")
	return nil
}

// ResetFIFO clears the FIFO.
func (d *Device) ResetFIFO() error {
	return d.modify(MAIN, func(v uint32) uint32 {
		return uint32(Main(v).WithFIFOReset(true).WithFrameStart(false))
	})
}

// ResetFSM returns the frame state machine to deep sleep, halting frame
// generation.
func (d *Device) ResetFSM() error {
	return d.modify(MAIN, func(v uint32) uint32 {
		return uint32(Main(v).WithFSMReset(true).WithFrameStart(false))
	})
}

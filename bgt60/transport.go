package bgt60

const (
	rwRead  = 0
	rwWrite = 1
)

// cmdByte packs the 7-bit address above the direction bit.
func cmdByte(addr Register, rw byte) byte {
	return byte(addr&0x7F)<<1 | rw
}

// ReadRegister reads the 24-bit value of addr in a single transaction. The
// returned status is the GSR0 byte the chip shifted out; when it reports an
// error the value is not returned.
func (d *Device) ReadRegister(addr Register) (uint32, GSR0, error) {
	b := d.frame[:]
	b[0], b[1], b[2], b[3] = cmdByte(addr, rwRead), 0, 0, 0
	if err := d.bus.Transfer(b); err != nil {
		return 0, 0, transportErr("read_register", addr, err)
	}
	st := GSR0(b[0])
	if st.Err() {
		return 0, st, statusErr("read_register", addr, st)
	}
	return uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), st, nil
}

// WriteRegister writes the low 24 bits of value to addr in a single
// transaction and returns the GSR0 byte echoed by the chip.
func (d *Device) WriteRegister(addr Register, value uint32) (GSR0, error) {
	b := d.frame[:]
	b[0] = cmdByte(addr, rwWrite)
	b[1], b[2], b[3] = byte(value>>16), byte(value>>8), byte(value)
	if err := d.bus.Transfer(b); err != nil {
		return 0, transportErr("write_register", addr, err)
	}
	st := GSR0(b[0])
	if st.Err() {
		return st, statusErr("write_register", addr, st)
	}
	return st, nil
}

// modify performs a read-modify-write of addr.
func (d *Device) modify(addr Register, fn func(uint32) uint32) error {
	v, _, err := d.ReadRegister(addr)
	if err != nil {
		return err
	}
	_, err = d.WriteRegister(addr, fn(v)&payloadMask)
	return err
}

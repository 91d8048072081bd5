package plugins

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// DefaultSPISpeed is used when the configuration leaves spi_speed unset.
const DefaultSPISpeed = 25_000_000

// ErrTransferTooLarge is returned for transfers longer than the spidev
// message buffer. spidev caps a whole message, not each transfer in it, so
// the FIFO burst cannot be split; raise the limit with spidev.bufsiz=<n> on
// the kernel command line or /sys/module/spidev/parameters/bufsiz.
var ErrTransferTooLarge = errors.New("SPI transfer exceeds spidev.bufsiz")

// SPIDevice is a Linux spidev port opened through periph.io. It implements
// bgt60.Bus.
type SPIDevice struct {
	conn   spi.Conn
	port   spi.PortCloser
	device string
	speed  physic.Frequency

	// Largest message spidev accepts (spidev.bufsiz); 0 when unknown.
	maxTx int
	tx    []byte
}

// NewSPIDevice opens and initializes an SPI device using periph.io
func NewSPIDevice(device string, speed uint32) (*SPIDevice, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph.io: %w", err)
	}
	if speed == 0 {
		speed = DefaultSPISpeed
	}

	port, err := spireg.Open(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI device %s: %w", device, err)
	}

	// BGT60 samples MOSI on the rising edge with SCLK idle low: mode 0.
	c, err := port.Connect(physic.Frequency(speed)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to connect to SPI device: %w", err)
	}

	s := &SPIDevice{
		conn:   c,
		port:   port,
		device: device,
		speed:  physic.Frequency(speed) * physic.Hertz,
	}
	if l, ok := c.(conn.Limits); ok {
		s.maxTx = l.MaxTxSize()
	}
	return s, nil
}

// Close closes the SPI device
func (s *SPIDevice) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.conn, s.port = nil, nil
	return err
}

// CheckTransferSize reports whether an n byte transfer fits in one spidev
// message.
func (s *SPIDevice) CheckTransferSize(n int) error {
	if s.maxTx > 0 && n > s.maxTx {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTransferTooLarge, n, s.maxTx)
	}
	return nil
}

// Transfer performs one full-duplex transaction in place with CS held for
// the whole buffer.
func (s *SPIDevice) Transfer(buf []byte) error {
	if s.conn == nil {
		return fmt.Errorf("SPI device not open")
	}
	if err := s.CheckTransferSize(len(buf)); err != nil {
		return err
	}
	if cap(s.tx) < len(buf) {
		s.tx = make([]byte, len(buf))
	}
	tx := s.tx[:len(buf)]
	copy(tx, buf)

	if err := s.conn.Tx(tx, buf); err != nil {
		return fmt.Errorf("SPI transfer failed: %w", err)
	}
	return nil
}

// DeviceInfo provides information about the SPI device
func (s *SPIDevice) DeviceInfo() string {
	if s.conn == nil {
		return fmt.Sprintf("Device: %s (closed)", s.device)
	}
	return fmt.Sprintf("Device: %s, Speed: %s, MaxTx: %d", s.device, s.speed, s.maxTx)
}

// IsOpen returns true if the SPI device is open
func (s *SPIDevice) IsOpen() bool {
	return s.conn != nil && s.port != nil
}

// ValidateSPIDevice checks if the device can be opened
func ValidateSPIDevice(device string) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph.io: %w", err)
	}
	port, err := spireg.Open(device)
	if err != nil {
		return fmt.Errorf("SPI device %s not accessible: %w", device, err)
	}
	defer port.Close()
	return nil
}

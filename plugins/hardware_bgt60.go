package plugins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/linht/bgt60/bgt60"
	"github.com/linht/bgt60/bgt60/sim"
)

// ErrNotInitialized is returned by RadarController operations issued before
// Initialize succeeded.
var ErrNotInitialized = errors.New("radar not initialized")

// DefaultAcquireTimeout bounds the IRQ wait of a single frame when the
// caller's context has no deadline.
const DefaultAcquireTimeout = 2 * time.Second

// RadarConfig describes the radar hardware.
type RadarConfig struct {
	Variant        string        `yaml:"variant" json:"variant"`
	SPIDevice      string        `yaml:"spi_device" json:"spi_device"`
	SPISpeed       uint32        `yaml:"spi_speed" json:"spi_speed"`
	GPIOChip       string        `yaml:"gpio_chip" json:"gpio_chip"`
	ResetPin       int           `yaml:"reset_pin" json:"reset_pin"`
	IRQPin         int           `yaml:"irq_pin" json:"irq_pin"`
	Simulate       bool          `yaml:"simulate" json:"simulate"`
	PowerOfTwoFIFO bool          `yaml:"power_of_two_fifo" json:"power_of_two_fifo"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout" json:"acquire_timeout"`
	DefaultPreset  string        `yaml:"default_preset" json:"default_preset"`
}

func (c *RadarConfig) applyDefaults() {
	if c.Variant == "" {
		c.Variant = "tr13c"
	}
	if c.SPIDevice == "" {
		c.SPIDevice = "/dev/spidev0.0"
	}
	if c.SPISpeed == 0 {
		c.SPISpeed = DefaultSPISpeed
	}
	if c.GPIOChip == "" {
		c.GPIOChip = "gpiochip0"
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = DefaultAcquireTimeout
	}
}

// Frame is one acquired frame. Samples is owned by the receiver. Config
// identifies the configuration the frame was taken under; it changes with
// every successful Configure.
type Frame struct {
	Seq     uint64           `json:"seq"`
	Config  uint64           `json:"config"`
	Time    time.Time        `json:"time"`
	Shape   bgt60.FrameShape `json:"shape"`
	Samples []uint16         `json:"samples"`
}

// RegisterValue is one entry of a register dump.
type RegisterValue struct {
	Address bgt60.Register `json:"address"`
	Name    string         `json:"name"`
	Value   uint32         `json:"value"`
	Status  string         `json:"gsr0"`
}

// SelfTestResult reports a test-pattern run.
type SelfTestResult struct {
	Frames   int                         `json:"frames"`
	Samples  int                         `json:"samples"`
	Passed   bool                        `json:"passed"`
	Mismatch *bgt60.PatternMismatchError `json:"mismatch,omitempty"`
	Frame    int                         `json:"failed_frame,omitempty"`
}

// RadarController owns the single radar device and the host resources
// behind it. All operations are serialized.
type RadarController struct {
	mu  sync.Mutex
	cfg RadarConfig
	log *slog.Logger

	variant bgt60.Variant
	spi     *SPIDevice
	gpio    *GPIOController
	chip    *sim.Chip
	dev     *bgt60.Device

	preset   string
	gen      uint64
	testMode bool
	buf      []byte
	samples  []uint16
	seq      uint64
}

// NewRadarController validates cfg; hardware is only touched by Initialize.
func NewRadarController(cfg RadarConfig, log *slog.Logger) (*RadarController, error) {
	cfg.applyDefaults()
	v, err := bgt60.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &RadarController{cfg: cfg, log: log, variant: v}, nil
}

// Initialize opens SPI and GPIO (or the simulator) and probes the chip.
// Calling it again re-opens everything.
func (r *RadarController) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeLocked()

	var (
		bus   bgt60.Bus
		rst   bgt60.OutputPin
		irq   bgt60.InterruptPin
		delay bgt60.Delayer
	)
	if r.cfg.Simulate {
		r.chip = newSimChip(r.variant)
		bus, rst, irq, delay = r.chip, r.chip.ResetPin(), r.chip.IRQ(), &sim.Delay{}
	} else {
		spi, err := NewSPIDevice(r.cfg.SPIDevice, r.cfg.SPISpeed)
		if err != nil {
			return fmt.Errorf("failed to initialize SPI: %w", err)
		}
		gpio, err := NewGPIOController(r.cfg.GPIOChip, r.cfg.ResetPin, r.cfg.IRQPin)
		if err != nil {
			spi.Close()
			return fmt.Errorf("failed to initialize GPIO: %w", err)
		}
		r.spi, r.gpio = spi, gpio
		bus, rst, irq, delay = spi, gpio.ResetPin(), gpio.IRQPin(), bgt60.SleepDelay{}
	}

	opts := []bgt60.Option{bgt60.WithLogger(r.log)}
	if r.cfg.PowerOfTwoFIFO {
		opts = append(opts, bgt60.WithPowerOfTwoFIFOLimit())
	}
	dev, err := bgt60.New(r.variant, bus, rst, irq, delay, opts...)
	if err != nil {
		r.closeLocked()
		return fmt.Errorf("failed to probe %s: %w", r.variant, err)
	}
	r.dev = dev
	r.log.Info("Radar initialized", "variant", r.variant, "simulate", r.cfg.Simulate)
	return nil
}

func newSimChip(v bgt60.Variant) *sim.Chip {
	if v == bgt60.UTR11AIP {
		return sim.New(v, 0, 7)
	}
	return sim.New(v, 3, 3)
}

// Close releases the hardware.
func (r *RadarController) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *RadarController) closeLocked() error {
	var errs []error
	if r.dev != nil && r.dev.State() == bgt60.StateRunning {
		if err := r.dev.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop radar: %w", err))
		}
	}
	if r.spi != nil {
		if err := r.spi.Close(); err != nil {
			errs = append(errs, fmt.Errorf("SPI close error: %w", err))
		}
	}
	if r.gpio != nil {
		if err := r.gpio.Close(); err != nil {
			errs = append(errs, fmt.Errorf("GPIO close error: %w", err))
		}
	}
	r.dev, r.spi, r.gpio, r.chip = nil, nil, nil, nil
	r.preset, r.testMode = "", false
	r.buf, r.samples = nil, nil
	return errors.Join(errs...)
}

func (r *RadarController) device() (*bgt60.Device, error) {
	if r.dev == nil {
		return nil, ErrNotInitialized
	}
	return r.dev, nil
}

// Initialized reports whether a device is open.
func (r *RadarController) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dev != nil
}

// Info describes the controller and, when open, the device.
func (r *RadarController) Info() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := map[string]interface{}{
		"variant":     r.variant.String(),
		"config":      r.cfg,
		"initialized": r.dev != nil,
		"max_fifo":    r.variant.MaxFIFOBlocks() * 2,
	}
	if r.dev == nil {
		return info
	}
	info["state"] = r.dev.State().String()
	info["preset"] = r.preset
	info["test_mode"] = r.testMode
	info["frames"] = r.seq
	if cfg, ok := r.dev.Config(); ok {
		info["shape"] = cfg.Shape()
		info["fifo_limit"] = cfg.FIFOLimit()
		info["frame_rate_hz"] = cfg.FrameRateHz()
	}
	if r.spi != nil {
		info["spi"] = r.spi.DeviceInfo()
	}
	if r.gpio != nil {
		info["gpio"] = r.gpio.Info()
	}
	return info
}

// Probe checks the configured host resources. Closed resources are opened
// and released again; open ones report their live state.
func (r *RadarController) Probe() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := func(err error) string {
		if err != nil {
			return err.Error()
		}
		return "ok"
	}
	if r.cfg.Simulate {
		return map[string]interface{}{"simulate": true, "open": r.dev != nil}
	}
	if r.spi != nil && r.gpio != nil {
		out := map[string]interface{}{"spi_open": r.spi.IsOpen()}
		if level, err := r.gpio.IRQLevel(); err != nil {
			out["irq_level"] = err.Error()
		} else {
			out["irq_level"] = level
		}
		return out
	}
	return map[string]interface{}{
		"spi":       result(ValidateSPIDevice(r.cfg.SPIDevice)),
		"reset_pin": result(ValidateGPIOPin(r.cfg.GPIOChip, r.cfg.ResetPin)),
		"irq_pin":   result(ValidateGPIOPin(r.cfg.GPIOChip, r.cfg.IRQPin)),
	}
}

// ChipID reads CHIP_ID.
func (r *RadarController) ChipID() (uint16, uint8, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, err := r.device()
	if err != nil {
		return 0, 0, err
	}
	return dev.ReadChipID()
}

// Configure programs cfg and records the preset name it came from.
func (r *RadarController) Configure(name string, cfg bgt60.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configureLocked(name, cfg)
}

func (r *RadarController) configureLocked(name string, cfg bgt60.Config) error {
	dev, err := r.device()
	if err != nil {
		return err
	}
	if r.spi != nil {
		if err := r.spi.CheckTransferSize(cfg.BufferLen()); err != nil {
			return err
		}
	}
	if err := dev.Configure(cfg); err != nil {
		if _, ok := dev.Config(); !ok {
			r.preset, r.buf, r.samples = "", nil, nil
		}
		return err
	}
	r.buf, r.samples, err = dev.NewFrameBuffers()
	if err != nil {
		return err
	}
	r.preset, r.testMode = name, false
	r.gen++
	if r.chip != nil {
		r.chip.FrameInterval = time.Duration(cfg.FrameRepetitionTime * float64(time.Second))
	}
	return nil
}

// Config returns the active configuration and its preset name.
func (r *RadarController) Config() (bgt60.Config, string, bool) {
	cfg, preset, _, ok := r.activeConfig()
	return cfg, preset, ok
}

// activeConfig also returns the generation frames taken under cfg carry.
func (r *RadarController) activeConfig() (bgt60.Config, string, uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dev == nil {
		return bgt60.Config{}, "", 0, false
	}
	cfg, ok := r.dev.Config()
	return cfg, r.preset, r.gen, ok
}

// SetTestMode switches the FIFO source between ADC data and the LFSR
// pattern.
func (r *RadarController) SetTestMode(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, err := r.device()
	if err != nil {
		return err
	}
	if on {
		err = dev.EnableTestMode()
	} else {
		err = dev.DisableTestMode()
	}
	if err == nil {
		r.testMode = on
	}
	return err
}

func (r *RadarController) testModeEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.testMode
}

// Start begins frame generation from an empty FIFO.
func (r *RadarController) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked()
}

func (r *RadarController) startLocked() error {
	dev, err := r.device()
	if err != nil {
		return err
	}
	if dev.State() == bgt60.StateRunning {
		return nil
	}
	if _, ok := dev.Config(); ok {
		if err := dev.ResetFIFO(); err != nil {
			return err
		}
	}
	if r.gpio != nil {
		r.gpio.Drain()
	}
	return dev.Start()
}

// Stop halts frame generation.
func (r *RadarController) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, err := r.device()
	if err != nil {
		return err
	}
	return dev.Stop()
}

// Running reports whether frames are being generated.
func (r *RadarController) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dev != nil && r.dev.State() == bgt60.StateRunning
}

// ReadRegister reads one register.
func (r *RadarController) ReadRegister(addr bgt60.Register) (uint32, bgt60.GSR0, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, err := r.device()
	if err != nil {
		return 0, 0, err
	}
	if err := r.checkAddr(addr); err != nil {
		return 0, 0, err
	}
	return dev.ReadRegister(addr)
}

// WriteRegister writes one register. MAIN words that start frames or strobe
// a reset are refused; Start, Stop and Configure own those bits. SFCTL keeps
// the FIFO threshold of the active configuration, and its LFSR bit updates
// the test mode flag.
func (r *RadarController) WriteRegister(addr bgt60.Register, value uint32) (bgt60.GSR0, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, err := r.device()
	if err != nil {
		return 0, err
	}
	if err := r.checkAddr(addr); err != nil {
		return 0, err
	}
	if value > 0xFFFFFF {
		return 0, fmt.Errorf("value 0x%X exceeds 24 bits", value)
	}
	switch addr {
	case bgt60.MAIN:
		m := bgt60.Main(value)
		if m.FrameStart() || m.SWReset() || m.FSMReset() || m.FIFOReset() {
			return 0, fmt.Errorf("%w: MAIN frame start and reset strobes are driven by start, stop and configure", ErrBadRegister)
		}
	case bgt60.SFCTL:
		cur, _, err := dev.ReadRegister(bgt60.SFCTL)
		if err != nil {
			return 0, err
		}
		sf := bgt60.SFCtl(value).WithFIFOCRef(bgt60.SFCtl(cur).FIFOCRef())
		st, err := dev.WriteRegister(addr, uint32(sf))
		if err == nil {
			r.testMode = sf.LFSREnabled()
		}
		return st, err
	}
	return dev.WriteRegister(addr, value)
}

// ErrBadRegister marks register addresses the API refuses to touch.
var ErrBadRegister = errors.New("register not accessible")

func (r *RadarController) checkAddr(addr bgt60.Register) error {
	if addr > bgt60.MaxRegister || addr == r.variant.FIFO() {
		return fmt.Errorf("%w: %s", ErrBadRegister, addr)
	}
	return nil
}

// ReadAllRegisters dumps every named register except the FIFO ports, whose
// reads consume data.
func (r *RadarController) ReadAllRegisters() ([]RegisterValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, err := r.device()
	if err != nil {
		return nil, err
	}

	out := make([]RegisterValue, 0, 96)
	for a := bgt60.MAIN; a <= bgt60.MaxRegister; a++ {
		if !a.Known() || a == bgt60.FIFO_TR13C || a == bgt60.FIFO_UTR11 {
			continue
		}
		if (a == bgt60.FSTAT_TR13C || a == bgt60.FSTAT_UTR11) && a != r.variant.FStat() {
			continue
		}
		v, st, err := dev.ReadRegister(a)
		if err != nil {
			return nil, fmt.Errorf("failed to read register %s: %w", a, err)
		}
		out = append(out, RegisterValue{Address: a, Name: a.String(), Value: v, Status: st.String()})
	}
	return out, nil
}

// Status reads and decodes the status registers.
func (r *RadarController) Status() (map[string]interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, err := r.device()
	if err != nil {
		return nil, err
	}
	st, err := dev.ReadStatus()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"state": dev.State().String(),
		"gsr0":  st.GSR0.String(),
		"stat0": map[string]interface{}{
			"raw":        uint32(st.Stat0),
			"sadc_ready": st.Stat0.SADCReady(),
			"madc_ready": st.Stat0.MADCReady(),
			"madc_bg_up": st.Stat0.MADCBGUp(),
			"ldo_ready":  st.Stat0.LDOReady(),
			"power_mode": st.Stat0.PowerMode(),
			"channel":    st.Stat0.ChannelSet(),
			"shape":      st.Stat0.ShapeIndex(),
		},
		"stat1": map[string]interface{}{
			"raw":         uint32(st.Stat1),
			"frame_count": st.Stat1.FrameCount(),
			"shape_group": st.Stat1.ShapeGroupCount(),
		},
		"fstat": map[string]interface{}{
			"raw":           uint32(st.FStat),
			"fill":          st.FStat.FillStatus(),
			"empty":         st.FStat.Empty(),
			"full":          st.FStat.Full(),
			"cref":          st.FStat.CRef(),
			"overflow":      st.FStat.Overflow(),
			"underflow":     st.FStat.Underflow(),
			"clk_num_err":   st.FStat.ClkNumErr(),
			"spi_burst_err": st.FStat.SPIBurstErr(),
		},
	}, nil
}

// AcquireFrame reads the next frame. The device must be running.
func (r *RadarController) AcquireFrame(ctx context.Context) (*Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquireLocked(ctx)
}

func (r *RadarController) acquireLocked(ctx context.Context) (*Frame, error) {
	dev, err := r.device()
	if err != nil {
		return nil, err
	}
	cfg, ok := dev.Config()
	if !ok {
		return nil, &bgt60.Error{Kind: bgt60.KindNoConfiguration, Op: "acquire_frame"}
	}
	if dev.State() != bgt60.StateRunning {
		return nil, fmt.Errorf("%w: radar is %s", ErrNotRunning, dev.State())
	}

	if _, has := ctx.Deadline(); !has {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.AcquireTimeout)
		defer cancel()
	}
	if err := dev.AcquireFIFO(ctx, r.buf, r.samples); err != nil {
		return nil, err
	}
	r.seq++
	return &Frame{
		Seq:     r.seq,
		Config:  r.gen,
		Time:    time.Now(),
		Shape:   cfg.Shape(),
		Samples: append([]uint16(nil), r.samples...),
	}, nil
}

// ErrNotRunning is returned when a frame is requested while stopped.
var ErrNotRunning = errors.New("radar not running")

// SelfTest runs the chip's test-pattern mode for the given number of frames
// and verifies every sample. The previous run state and test mode are
// restored afterwards.
func (r *RadarController) SelfTest(ctx context.Context, frames int) (*SelfTestResult, error) {
	if frames <= 0 {
		frames = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, err := r.device()
	if err != nil {
		return nil, err
	}
	if _, ok := dev.Config(); !ok {
		return nil, &bgt60.Error{Kind: bgt60.KindNoConfiguration, Op: "selftest"}
	}
	wasRunning := dev.State() == bgt60.StateRunning
	wasTest := r.testMode

	if wasRunning {
		if err := dev.Stop(); err != nil {
			return nil, err
		}
	}
	if err := dev.EnableTestMode(); err != nil {
		return nil, err
	}
	res := &SelfTestResult{Passed: true}
	runErr := r.runPattern(ctx, frames, res)

	// Restore regardless of the outcome.
	if err := dev.Stop(); err != nil && runErr == nil {
		runErr = err
	}
	if !wasTest {
		if err := dev.DisableTestMode(); err != nil && runErr == nil {
			runErr = err
		}
	}
	if wasRunning && runErr == nil {
		runErr = r.startLocked()
	}
	if runErr != nil {
		return nil, runErr
	}
	r.log.Info("Radar self-test finished", "frames", res.Frames, "passed", res.Passed)
	return res, nil
}

func (r *RadarController) runPattern(ctx context.Context, frames int, res *SelfTestResult) error {
	if err := r.startLocked(); err != nil {
		return err
	}
	next := bgt60.TestPatternSeed
	for i := 0; i < frames; i++ {
		f, err := r.acquireLocked(ctx)
		if err != nil {
			return err
		}
		res.Frames++
		res.Samples += len(f.Samples)
		var mm *bgt60.PatternMismatchError
		if next, err = bgt60.CheckTestPattern(f.Samples, next); errors.As(err, &mm) {
			res.Passed, res.Mismatch, res.Frame = false, mm, i
			return nil
		}
	}
	return nil
}

package plugins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/linht/bgt60/bgt60"
)

// MaxSelfTestFrames bounds a single self-test request.
const MaxSelfTestFrames = 64

// RadarPlugin exposes the radar controller over HTTP.
type RadarPlugin struct {
	radar   *RadarController
	presets *PresetStore
}

// NewRadarPlugin creates a new radar plugin instance
func NewRadarPlugin(radar *RadarController, presets *PresetStore) (*RadarPlugin, error) {
	if radar == nil {
		return nil, fmt.Errorf("radar plugin requires a radar controller")
	}
	return &RadarPlugin{radar: radar, presets: presets}, nil
}

// Name returns the plugin identifier
func (p *RadarPlugin) Name() string {
	return "radar"
}

// RegisterRoutes adds the plugin's HTTP routes
func (p *RadarPlugin) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/radar")

	// Device control endpoints
	api.Post("/init", p.handleInit)
	api.Post("/close", p.handleClose)
	api.Get("/info", p.handleInfo)
	api.Get("/status", p.handleStatus)
	api.Get("/chip-id", p.handleChipID)
	api.Get("/hardware", p.handleProbe)

	// Configuration and acquisition
	api.Post("/configure", p.handleConfigure)
	api.Get("/config", p.handleGetConfig)
	api.Post("/start", p.handleStart)
	api.Post("/stop", p.handleStop)
	api.Post("/test-mode", p.handleTestMode)
	api.Post("/selftest", p.handleSelfTest)
	api.Get("/frame", p.handleFrame)

	// Register access endpoints
	api.Get("/register/:addr", p.handleReadRegister)
	api.Post("/register/:addr", p.handleWriteRegister)
	api.Get("/registers", p.handleReadAllRegisters)

	slog.Info("Radar plugin routes registered")
}

// Shutdown performs cleanup
func (p *RadarPlugin) Shutdown() error {
	return p.radar.Close()
}

// statusFor maps an error to the HTTP status reported to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotInitialized), errors.Is(err, ErrNotRunning), errors.Is(err, ErrStreamBusy),
		errors.Is(err, ErrConfigChanged):
		return 409
	case errors.Is(err, ErrBadRegister), errors.Is(err, ErrPresetNotFound), errors.Is(err, ErrTransferTooLarge):
		return 400
	case errors.Is(err, context.DeadlineExceeded):
		return 504
	}
	switch bgt60.KindOf(err) {
	case bgt60.KindInvalidFIFO, bgt60.KindInvalidConfig, bgt60.KindBufferSize:
		return 400
	case bgt60.KindNoConfiguration:
		return 409
	case bgt60.KindStatus, bgt60.KindTransport, bgt60.KindPin,
		bgt60.KindVariantMismatch, bgt60.KindResetTimeout:
		return 502
	}
	return 500
}

func sendRadarError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= 500 {
		slog.Error("Radar operation failed", "path", c.Path(), "error", err, "kind", bgt60.KindOf(err))
	}
	return SendError(c, status, err)
}

// Device control handlers

func (p *RadarPlugin) handleInit(c *fiber.Ctx) error {
	if err := p.radar.Initialize(); err != nil {
		return sendRadarError(c, err)
	}
	digital, rf, err := p.radar.ChipID()
	if err != nil {
		return sendRadarError(c, err)
	}
	return SendSuccess(c, map[string]interface{}{
		"digital_id": digital,
		"rf_id":      rf,
		"info":       p.radar.Info(),
	}, "Radar initialized")
}

func (p *RadarPlugin) handleClose(c *fiber.Ctx) error {
	if err := p.radar.Close(); err != nil {
		return sendRadarError(c, err)
	}
	return SendSuccess(c, nil, "Radar closed")
}

func (p *RadarPlugin) handleInfo(c *fiber.Ctx) error {
	return SendSuccess(c, p.radar.Info(), "")
}

func (p *RadarPlugin) handleProbe(c *fiber.Ctx) error {
	return SendSuccess(c, p.radar.Probe(), "")
}

func (p *RadarPlugin) handleStatus(c *fiber.Ctx) error {
	status, err := p.radar.Status()
	if err != nil {
		return sendRadarError(c, err)
	}
	return SendSuccess(c, status, "")
}

func (p *RadarPlugin) handleChipID(c *fiber.Ctx) error {
	digital, rf, err := p.radar.ChipID()
	if err != nil {
		return sendRadarError(c, err)
	}
	return SendSuccess(c, map[string]interface{}{
		"digital_id": digital,
		"rf_id":      rf,
	}, "")
}

// Configuration and acquisition handlers

func (p *RadarPlugin) handleConfigure(c *fiber.Ctx) error {
	var req struct {
		Preset string        `json:"preset"`
		Config *bgt60.Config `json:"config"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}

	var (
		name string
		cfg  bgt60.Config
	)
	switch {
	case req.Config != nil:
		if err := req.Config.CheckRegisters(); err != nil {
			return sendRadarError(c, err)
		}
		name, cfg = "custom", *req.Config
	case req.Preset != "":
		if p.presets == nil {
			return SendErrorMessage(c, 400, "No preset store configured")
		}
		preset, err := p.presets.Get(req.Preset)
		if err != nil {
			return sendRadarError(c, err)
		}
		name, cfg = preset.Name, preset.Config
	default:
		return SendErrorMessage(c, 400, "Either preset or config is required")
	}

	if err := p.radar.Configure(name, cfg); err != nil {
		return sendRadarError(c, err)
	}
	slog.Info("Radar configured", "preset", name, "shape", cfg.Shape())
	return SendSuccess(c, map[string]interface{}{
		"preset":     name,
		"shape":      cfg.Shape(),
		"fifo_limit": cfg.FIFOLimit(),
	}, "Radar configured")
}

func (p *RadarPlugin) handleGetConfig(c *fiber.Ctx) error {
	cfg, name, ok := p.radar.Config()
	if !ok {
		return sendRadarError(c, &bgt60.Error{Kind: bgt60.KindNoConfiguration, Op: "get_config"})
	}
	return SendSuccess(c, map[string]interface{}{
		"preset":  name,
		"config":  cfg,
		"summary": cfg.String(),
	}, "")
}

func (p *RadarPlugin) handleStart(c *fiber.Ctx) error {
	if err := p.radar.Start(); err != nil {
		return sendRadarError(c, err)
	}
	return SendSuccess(c, nil, "Radar started")
}

func (p *RadarPlugin) handleStop(c *fiber.Ctx) error {
	if err := p.radar.Stop(); err != nil {
		return sendRadarError(c, err)
	}
	return SendSuccess(c, nil, "Radar stopped")
}

func (p *RadarPlugin) handleTestMode(c *fiber.Ctx) error {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}
	if err := p.radar.SetTestMode(req.Enabled); err != nil {
		return sendRadarError(c, err)
	}
	return SendSuccess(c, map[string]interface{}{"enabled": req.Enabled}, "Test mode updated")
}

func (p *RadarPlugin) handleSelfTest(c *fiber.Ctx) error {
	frames := c.QueryInt("frames", 4)
	if frames < 1 || frames > MaxSelfTestFrames {
		return SendErrorMessage(c, 400, fmt.Sprintf("frames must be between 1 and %d", MaxSelfTestFrames))
	}
	res, err := p.radar.SelfTest(c.UserContext(), frames)
	if err != nil {
		return sendRadarError(c, err)
	}
	msg := "Self-test passed"
	if !res.Passed {
		msg = "Self-test failed"
		slog.Warn("Radar self-test failed", "frame", res.Frame, "mismatch", res.Mismatch)
	}
	return SendSuccess(c, res, msg)
}

func (p *RadarPlugin) handleFrame(c *fiber.Ctx) error {
	f, err := p.radar.AcquireFrame(c.UserContext())
	if err != nil {
		return sendRadarError(c, err)
	}
	return SendSuccess(c, map[string]interface{}{
		"frame":   f,
		"strides": f.Shape.Strides(),
	}, "")
}

// Register access handlers

// parseAddr accepts decimal or 0x-prefixed hex.
func parseAddr(s string) (bgt60.Register, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil || v > 0x7F {
		return 0, fmt.Errorf("%w: %q", ErrBadRegister, s)
	}
	return bgt60.Register(v), nil
}

func registerJSON(addr bgt60.Register, value uint32, st bgt60.GSR0) map[string]interface{} {
	return map[string]interface{}{
		"address":     fmt.Sprintf("0x%02X", uint8(addr)),
		"name":        addr.String(),
		"value":       fmt.Sprintf("0x%06X", value),
		"value_dec":   value,
		"gsr0":        st.String(),
		"description": describeRegister(addr),
	}
}

func (p *RadarPlugin) handleReadRegister(c *fiber.Ctx) error {
	addr, err := parseAddr(c.Params("addr"))
	if err != nil {
		return SendError(c, 400, err)
	}
	value, st, err := p.radar.ReadRegister(addr)
	if err != nil {
		return sendRadarError(c, err)
	}
	return SendSuccess(c, registerJSON(addr, value, st), "")
}

func (p *RadarPlugin) handleWriteRegister(c *fiber.Ctx) error {
	addr, err := parseAddr(c.Params("addr"))
	if err != nil {
		return SendError(c, 400, err)
	}
	var req struct {
		Value uint32 `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}
	if req.Value > 0xFFFFFF {
		return SendErrorMessage(c, 400, "Value exceeds 24 bits")
	}

	st, err := p.radar.WriteRegister(addr, req.Value)
	if err != nil {
		return sendRadarError(c, err)
	}
	slog.Info("Register write", "register", addr, "value", fmt.Sprintf("0x%06X", req.Value))
	return SendSuccess(c, registerJSON(addr, req.Value, st), "Register written successfully")
}

func (p *RadarPlugin) handleReadAllRegisters(c *fiber.Ctx) error {
	regs, err := p.radar.ReadAllRegisters()
	if err != nil {
		return sendRadarError(c, err)
	}
	list := make([]map[string]interface{}, 0, len(regs))
	for _, r := range regs {
		list = append(list, registerJSON(r.Address, r.Value, 0))
		list[len(list)-1]["gsr0"] = r.Status
	}
	return SendSuccess(c, map[string]interface{}{
		"registers": list,
		"count":     len(list),
	}, "")
}

// Register the plugin
func init() {
	Register("radar", func(config interface{}) (Plugin, error) {
		configMap, ok := config.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid config for radar plugin")
		}
		radar, _ := configMap["radar"].(*RadarController)
		store, _ := configMap["store"].(*PresetStore)
		return NewRadarPlugin(radar, store)
	})
}

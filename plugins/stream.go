package plugins

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ErrStreamBusy is returned when a second stream is requested.
var ErrStreamBusy = errors.New("a stream session is already active")

// ErrConfigChanged ends a stream or capture whose radar was reconfigured
// while it ran; its header or metadata no longer describes the frames.
var ErrConfigChanged = errors.New("radar configuration changed")

// frameHeaderLen prefixes every binary frame message with its sequence
// number (uint64, little endian).
const frameHeaderLen = 8

// StreamPlugin pushes frames to one WebSocket client at a time.
type StreamPlugin struct {
	radar *RadarController

	mu      sync.Mutex
	session *StreamSession
}

// StreamSession is the active WebSocket stream.
type StreamSession struct {
	ID      string    `json:"id"`
	Started time.Time `json:"started"`
	Remote  string    `json:"remote"`
	Frames  uint64    `json:"frames"`

	cancel context.CancelFunc
}

// streamHeader is the first (text) message of a session.
type streamHeader struct {
	Type        string      `json:"type"`
	Session     string      `json:"session"`
	Preset      string      `json:"preset"`
	Shape       interface{} `json:"shape"`
	Strides     [3]int      `json:"strides"`
	FIFOLimit   int         `json:"fifo_limit"`
	FrameRateHz float64     `json:"frame_rate_hz"`
	Format      string      `json:"format"`
}

// streamControl is a message from the client.
type streamControl struct {
	Type string `json:"type"`
}

// NewStreamPlugin creates a new stream plugin instance
func NewStreamPlugin(radar *RadarController) (*StreamPlugin, error) {
	if radar == nil {
		return nil, fmt.Errorf("stream plugin requires a radar controller")
	}
	return &StreamPlugin{radar: radar}, nil
}

// Name returns the plugin identifier
func (p *StreamPlugin) Name() string {
	return "stream"
}

// RegisterRoutes adds the plugin's HTTP routes
func (p *StreamPlugin) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/stream")

	api.Get("/session", p.handleSession)
	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if p.active() {
			return SendError(c, 409, ErrStreamBusy)
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(p.handleWebSocket))
}

// Shutdown ends the active session.
func (p *StreamPlugin) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		p.session.cancel()
	}
	return nil
}

func (p *StreamPlugin) active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

func (p *StreamPlugin) openSession(remote string) (*StreamSession, context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		return nil, nil, ErrStreamBusy
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.session = &StreamSession{
		ID:      uuid.New().String(),
		Started: time.Now(),
		Remote:  remote,
		cancel:  cancel,
	}
	return p.session, ctx, nil
}

func (p *StreamPlugin) closeSession(s *StreamSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s.cancel()
	if p.session == s {
		p.session = nil
	}
}

func (p *StreamPlugin) handleSession(c *fiber.Ctx) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return SendSuccess(c, map[string]interface{}{"active": false}, "")
	}
	return SendSuccess(c, map[string]interface{}{
		"active":  true,
		"session": p.session,
	}, "")
}

// handleWebSocket sends a header, then one binary message per frame until
// the client disconnects, sends {"type":"stop"}, acquisition fails or the
// radar is reconfigured.
func (p *StreamPlugin) handleWebSocket(c *websocket.Conn) {
	session, ctx, err := p.openSession(c.RemoteAddr().String())
	if err != nil {
		c.WriteJSON(fiber.Map{"type": "error", "error": err.Error()})
		return
	}
	defer p.closeSession(session)
	log := slog.With("session", session.ID)

	cfg, preset, gen, ok := p.radar.activeConfig()
	if !ok {
		c.WriteJSON(fiber.Map{"type": "error", "error": "radar is not configured"})
		return
	}
	startedHere := false
	if !p.radar.Running() {
		if err := p.radar.Start(); err != nil {
			c.WriteJSON(fiber.Map{"type": "error", "error": err.Error()})
			return
		}
		startedHere = true
	}
	defer func() {
		// A reconfigured radar belongs to whoever reconfigured it.
		if _, _, now, _ := p.radar.activeConfig(); startedHere && now == gen {
			if err := p.radar.Stop(); err != nil {
				log.Warn("Failed to stop radar after stream", "error", err)
			}
		}
	}()

	shape := cfg.Shape()
	if err := c.WriteJSON(streamHeader{
		Type:        "header",
		Session:     session.ID,
		Preset:      preset,
		Shape:       shape,
		Strides:     shape.Strides(),
		FIFOLimit:   cfg.FIFOLimit(),
		FrameRateHz: cfg.FrameRateHz(),
		Format:      "u64le seq, then u16le samples",
	}); err != nil {
		return
	}
	log.Info("Stream started", "remote", session.Remote, "shape", shape)

	// Reader: client control messages and disconnect detection.
	go func() {
		defer session.cancel()
		for {
			var msg streamControl
			if err := c.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "stop" {
				return
			}
		}
	}()

	buf := make([]byte, frameHeaderLen+2*cfg.FIFOLimit())
	for ctx.Err() == nil {
		f, err := p.radar.AcquireFrame(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("Stream acquisition failed", "error", err)
				c.WriteJSON(fiber.Map{"type": "error", "error": err.Error()})
			}
			break
		}
		if f.Config != gen || len(f.Samples) != cfg.FIFOLimit() {
			log.Warn("Stream ended by reconfiguration", "frames", session.Frames)
			c.WriteJSON(fiber.Map{"type": "error", "error": ErrConfigChanged.Error()})
			break
		}
		binary.LittleEndian.PutUint64(buf, f.Seq)
		for i, s := range f.Samples {
			binary.LittleEndian.PutUint16(buf[frameHeaderLen+2*i:], s)
		}
		if err := c.WriteMessage(websocket.BinaryMessage, buf[:frameHeaderLen+2*len(f.Samples)]); err != nil {
			break
		}
		p.mu.Lock()
		session.Frames++
		p.mu.Unlock()
	}
	log.Info("Stream ended", "frames", session.Frames)
}

// Register the plugin
func init() {
	Register("stream", func(config interface{}) (Plugin, error) {
		configMap, ok := config.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid config for stream plugin")
		}
		radar, _ := configMap["radar"].(*RadarController)
		return NewStreamPlugin(radar)
	})
}

package plugins

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/linht/bgt60/bgt60"
)

// Capture limits
const (
	DefaultCaptureDir       = "./captures"
	DefaultMaxCaptureFrames = 1000
)

// ErrCaptureNotFound is returned for unknown or malformed capture ids.
var ErrCaptureNotFound = errors.New("capture not found")

// CaptureMeta is written next to each capture as <id>.yaml.
type CaptureMeta struct {
	ID          string           `yaml:"id" json:"id"`
	Created     time.Time        `yaml:"created" json:"created"`
	Preset      string           `yaml:"preset" json:"preset"`
	Variant     string           `yaml:"variant" json:"variant"`
	Shape       bgt60.FrameShape `yaml:"shape" json:"shape"`
	Frames      int              `yaml:"frames" json:"frames"`
	FirstSeq    uint64           `yaml:"first_seq" json:"first_seq"`
	FrameRateHz float64          `yaml:"frame_rate_hz" json:"frame_rate_hz"`
	SampleRate  uint32           `yaml:"sample_rate_hz" json:"sample_rate_hz"`
	TestMode    bool             `yaml:"test_mode" json:"test_mode"`
	Format      string           `yaml:"format" json:"format"`
	Size        int64            `yaml:"size" json:"size"`
}

// sampleFormat describes the .bin layout: frames back to back, each frame
// the raw interleaved sample order, one little-endian uint16 per sample.
const sampleFormat = "u16le interleaved [frame][chirp][sample][antenna]"

// CaptureStore records frames into a directory.
type CaptureStore struct {
	dir       string
	maxFrames int

	afterFrame func(i int) // test hook, called after each acquired frame
}

// NewCaptureStore creates dir if needed.
func NewCaptureStore(dir string, maxFrames int) (*CaptureStore, error) {
	if dir == "" {
		dir = DefaultCaptureDir
	}
	if maxFrames <= 0 {
		maxFrames = DefaultMaxCaptureFrames
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}
	return &CaptureStore{dir: dir, maxFrames: maxFrames}, nil
}

// paths maps an id to its files. Only canonical UUIDs are accepted, which
// also keeps ids from escaping the directory.
func (s *CaptureStore) paths(id string) (bin, meta string, err error) {
	u, err := uuid.Parse(id)
	if err != nil || u.String() != strings.ToLower(id) {
		return "", "", fmt.Errorf("%w: %q", ErrCaptureNotFound, id)
	}
	base := filepath.Join(s.dir, u.String())
	return base + ".bin", base + ".yaml", nil
}

// Record acquires frames from radar and stores them. The radar is started
// for the recording if it was not running, and stopped again afterwards.
// A reconfiguration during the recording fails it with ErrConfigChanged.
func (s *CaptureStore) Record(ctx context.Context, radar *RadarController, frames int) (*CaptureMeta, error) {
	if frames <= 0 || frames > s.maxFrames {
		return nil, fmt.Errorf("frames must be between 1 and %d", s.maxFrames)
	}
	cfg, preset, gen, ok := radar.activeConfig()
	if !ok {
		return nil, &bgt60.Error{Kind: bgt60.KindNoConfiguration, Op: "record"}
	}
	if !radar.Running() {
		if err := radar.Start(); err != nil {
			return nil, err
		}
		defer func() {
			if _, _, now, _ := radar.activeConfig(); now != gen {
				return
			}
			if err := radar.Stop(); err != nil {
				slog.Warn("Failed to stop radar after capture", "error", err)
			}
		}()
	}

	id := uuid.New()
	bin, metaPath, _ := s.paths(id.String())
	f, err := os.Create(bin)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}
	meta := &CaptureMeta{
		ID:          id.String(),
		Created:     time.Now().UTC(),
		Preset:      preset,
		Variant:     radar.variant.String(),
		Shape:       cfg.Shape(),
		FrameRateHz: cfg.FrameRateHz(),
		SampleRate:  cfg.SampleRateHz,
		TestMode:    radar.testModeEnabled(),
		Format:      sampleFormat,
	}

	w := bufio.NewWriterSize(f, 64*1024)
	err = func() error {
		for i := 0; i < frames; i++ {
			fr, err := radar.AcquireFrame(ctx)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			if fr.Config != gen || len(fr.Samples) != meta.Shape.Len() {
				return fmt.Errorf("frame %d: %w", i, ErrConfigChanged)
			}
			if i == 0 {
				meta.FirstSeq = fr.Seq
			}
			if s.afterFrame != nil {
				s.afterFrame(i)
			}
			if err := binary.Write(w, binary.LittleEndian, fr.Samples); err != nil {
				return fmt.Errorf("failed to write frame %d: %w", i, err)
			}
			meta.Frames++
		}
		return w.Flush()
	}()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(bin)
		return nil, err
	}

	if st, err := os.Stat(bin); err == nil {
		meta.Size = st.Size()
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		os.Remove(bin)
		return nil, fmt.Errorf("failed to serialize capture metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		os.Remove(bin)
		return nil, fmt.Errorf("failed to write capture metadata: %w", err)
	}
	slog.Info("Capture recorded", "id", meta.ID, "frames", meta.Frames, "bytes", meta.Size)
	return meta, nil
}

// Meta reads the metadata of one capture.
func (s *CaptureStore) Meta(id string) (*CaptureMeta, error) {
	_, metaPath, err := s.paths(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(metaPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCaptureNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read capture metadata: %w", err)
	}
	var m CaptureMeta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse capture metadata: %w", err)
	}
	return &m, nil
}

// List returns all captures, newest first.
func (s *CaptureStore) List() ([]*CaptureMeta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture directory: %w", err)
	}
	out := make([]*CaptureMeta, 0, len(entries))
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".yaml")
		if e.IsDir() || !ok {
			continue
		}
		m, err := s.Meta(id)
		if err != nil {
			slog.Warn("Skipping capture", "file", e.Name(), "error", err)
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out, nil
}

// DataPath returns the path of the sample file of id.
func (s *CaptureStore) DataPath(id string) (string, error) {
	bin, _, err := s.paths(id)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(bin); err != nil {
		return "", fmt.Errorf("%w: %s", ErrCaptureNotFound, id)
	}
	return bin, nil
}

// Delete removes both files of id.
func (s *CaptureStore) Delete(id string) error {
	bin, metaPath, err := s.paths(id)
	if err != nil {
		return err
	}
	errBin := os.Remove(bin)
	errMeta := os.Remove(metaPath)
	if errors.Is(errBin, os.ErrNotExist) && errors.Is(errMeta, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrCaptureNotFound, id)
	}
	for _, err := range []error{errBin, errMeta} {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete capture: %w", err)
		}
	}
	return nil
}

// CapturesPlugin records radar frames to disk and serves them.
type CapturesPlugin struct {
	store *CaptureStore
	radar *RadarController
}

// NewCapturesPlugin creates a new captures plugin instance
func NewCapturesPlugin(store *CaptureStore, radar *RadarController) (*CapturesPlugin, error) {
	if store == nil || radar == nil {
		return nil, fmt.Errorf("captures plugin requires a capture store and a radar controller")
	}
	return &CapturesPlugin{store: store, radar: radar}, nil
}

// Name returns the plugin identifier
func (p *CapturesPlugin) Name() string {
	return "captures"
}

// RegisterRoutes adds the plugin's HTTP routes
func (p *CapturesPlugin) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/captures")

	api.Get("/", p.handleList)
	api.Post("/", p.handleRecord)
	api.Get("/:id", p.handleMeta)
	api.Get("/:id/data", p.handleDownload)
	api.Delete("/:id", p.handleDelete)
}

// Shutdown performs cleanup
func (p *CapturesPlugin) Shutdown() error {
	return nil
}

func captureStatus(err error) int {
	if errors.Is(err, ErrCaptureNotFound) {
		return 404
	}
	return statusFor(err)
}

func (p *CapturesPlugin) handleList(c *fiber.Ctx) error {
	list, err := p.store.List()
	if err != nil {
		return SendError(c, 500, err)
	}
	return SendSuccess(c, map[string]interface{}{
		"captures": list,
		"count":    len(list),
	}, "")
}

func (p *CapturesPlugin) handleRecord(c *fiber.Ctx) error {
	var req struct {
		Frames int `json:"frames"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}
	if req.Frames <= 0 || req.Frames > p.store.maxFrames {
		return SendErrorMessage(c, 400, fmt.Sprintf("frames must be between 1 and %d", p.store.maxFrames))
	}
	meta, err := p.store.Record(c.UserContext(), p.radar, req.Frames)
	if err != nil {
		return sendRadarError(c, err)
	}
	return SendSuccess(c, meta, "Capture recorded")
}

func (p *CapturesPlugin) handleMeta(c *fiber.Ctx) error {
	meta, err := p.store.Meta(c.Params("id"))
	if err != nil {
		return SendError(c, captureStatus(err), err)
	}
	return SendSuccess(c, meta, "")
}

func (p *CapturesPlugin) handleDownload(c *fiber.Ctx) error {
	id := c.Params("id")
	path, err := p.store.DataPath(id)
	if err != nil {
		return SendError(c, captureStatus(err), err)
	}
	return c.Download(path, id+".bin")
}

func (p *CapturesPlugin) handleDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := p.store.Delete(id); err != nil {
		return SendError(c, captureStatus(err), err)
	}
	slog.Info("Capture deleted", "id", id)
	return SendSuccess(c, nil, "Capture deleted")
}

// Register the plugin
func init() {
	Register("captures", func(config interface{}) (Plugin, error) {
		configMap, ok := config.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid config for captures plugin")
		}
		radar, _ := configMap["radar"].(*RadarController)
		dir, _ := configMap["dir"].(string)
		maxFrames, _ := configMap["max_frames"].(int)

		store, err := NewCaptureStore(dir, maxFrames)
		if err != nil {
			return nil, err
		}
		return NewCapturesPlugin(store, radar)
	})
}

package plugins

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"

	"github.com/linht/bgt60/bgt60"
)

// ErrPresetNotFound is returned for unknown preset names.
var ErrPresetNotFound = errors.New("preset not found")

var presetNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// registerList is the YAML form of a register list: a flow sequence of hex
// literals, the way the vendor tool prints them.
type registerList []bgt60.RegisterWord

// MarshalYAML implements yaml.Marshaler
func (l registerList) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, w := range l {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!int",
			Value: fmt.Sprintf("0x%08x", uint32(w)),
		})
	}
	return node, nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (l *registerList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: registers must be a sequence", node.Line)
	}
	out := make(registerList, 0, len(node.Content))
	for _, item := range node.Content {
		var v uint32
		if err := item.Decode(&v); err != nil {
			return fmt.Errorf("line %d: invalid register word %q: %w", item.Line, item.Value, err)
		}
		out = append(out, bgt60.RegisterWord(v))
	}
	*l = out
	return nil
}

type presetEntry struct {
	Description string       `yaml:"description,omitempty"`
	Config      bgt60.Config `yaml:"config"`
	Registers   registerList `yaml:"registers"`
}

type presetFile struct {
	Presets map[string]presetEntry `yaml:"presets"`
}

// Preset is a named radar configuration.
type Preset struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Builtin     bool         `json:"builtin"`
	Config      bgt60.Config `json:"config"`
}

// PresetSummary is the list view of a preset.
type PresetSummary struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Builtin     bool             `json:"builtin"`
	Shape       bgt60.FrameShape `json:"shape"`
	FIFOLimit   int              `json:"fifo_limit"`
	FrameRateHz float64          `json:"frame_rate_hz"`
}

// PresetStore holds the built-in presets plus those from a YAML file.
// Entries in the file shadow built-ins of the same name.
type PresetStore struct {
	mu      sync.RWMutex
	path    string
	file    map[string]presetEntry
	builtin map[string]bgt60.Config
}

// NewPresetStore loads path. A missing file is not an error; it is created
// on the first Save.
func NewPresetStore(path string) (*PresetStore, error) {
	s := &PresetStore{
		path:    path,
		file:    make(map[string]presetEntry),
		builtin: make(map[string]bgt60.Config, len(bgt60.Presets)),
	}
	for name, mk := range bgt60.Presets {
		s.builtin[name] = mk()
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("Preset file not found, using built-in presets", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}

	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse presets file: %w", err)
	}
	for name, e := range pf.Presets {
		if err := e.bind(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		s.file[name] = e
	}
	slog.Info("Presets loaded", "path", path, "count", len(s.file))
	return s, nil
}

// bind copies the YAML register list into the config.
func (e *presetEntry) bind() error {
	if len(e.Registers) != bgt60.NumRegisterWords {
		return fmt.Errorf("need %d register words, got %d", bgt60.NumRegisterWords, len(e.Registers))
	}
	copy(e.Config.Registers[:], e.Registers)
	return nil
}

// Get returns the named preset.
func (s *PresetStore) Get(name string) (Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.file[name]; ok {
		return Preset{Name: name, Description: e.Description, Config: e.Config}, nil
	}
	if cfg, ok := s.builtin[name]; ok {
		return Preset{Name: name, Builtin: true, Config: cfg}, nil
	}
	return Preset{}, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
}

// List returns every preset sorted by name.
func (s *PresetStore) List() []PresetSummary {
	s.mu.RLock()
	names := make(map[string]struct{}, len(s.file)+len(s.builtin))
	for n := range s.file {
		names[n] = struct{}{}
	}
	for n := range s.builtin {
		names[n] = struct{}{}
	}
	s.mu.RUnlock()

	out := make([]PresetSummary, 0, len(names))
	for n := range names {
		p, err := s.Get(n)
		if err != nil {
			continue
		}
		out = append(out, PresetSummary{
			Name:        p.Name,
			Description: p.Description,
			Builtin:     p.Builtin,
			Shape:       p.Config.Shape(),
			FIFOLimit:   p.Config.FIFOLimit(),
			FrameRateHz: p.Config.FrameRateHz(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Save stores cfg under name and rewrites the file.
func (s *PresetStore) Save(name, description string, cfg bgt60.Config) error {
	if !presetNameRe.MatchString(name) {
		return fmt.Errorf("invalid preset name %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return fmt.Errorf("no presets file configured")
	}

	prev, had := s.file[name]
	s.file[name] = presetEntry{
		Description: description,
		Config:      cfg,
		Registers:   registerList(cfg.Registers[:]),
	}
	if err := s.writeLocked(); err != nil {
		if had {
			s.file[name] = prev
		} else {
			delete(s.file, name)
		}
		return err
	}
	slog.Info("Preset saved", "name", name)
	return nil
}

// Delete removes a preset from the file. Built-ins cannot be deleted.
func (s *PresetStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.file[name]
	if !ok {
		if _, builtin := s.builtin[name]; builtin {
			return fmt.Errorf("preset %q is built in", name)
		}
		return fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	delete(s.file, name)
	if err := s.writeLocked(); err != nil {
		s.file[name] = e
		return err
	}
	slog.Info("Preset deleted", "name", name)
	return nil
}

func (s *PresetStore) writeLocked() error {
	data, err := yaml.Marshal(presetFile{Presets: s.file})
	if err != nil {
		return fmt.Errorf("failed to serialize presets: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".presets-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write presets file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write presets file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write presets file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace presets file: %w", err)
	}
	return nil
}

// PresetsPlugin exposes the preset store over HTTP.
type PresetsPlugin struct {
	store *PresetStore
	radar *RadarController
}

// NewPresetsPlugin creates a new presets plugin instance
func NewPresetsPlugin(store *PresetStore, radar *RadarController) (*PresetsPlugin, error) {
	if store == nil {
		return nil, fmt.Errorf("presets plugin requires a preset store")
	}
	return &PresetsPlugin{store: store, radar: radar}, nil
}

// Name returns the plugin identifier
func (p *PresetsPlugin) Name() string {
	return "presets"
}

// RegisterRoutes adds the plugin's HTTP routes
func (p *PresetsPlugin) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/presets")

	api.Get("/", p.handleList)
	api.Get("/:name", p.handleGet)
	api.Post("/:name", p.handleSave)
	api.Delete("/:name", p.handleDelete)
}

// Shutdown performs cleanup
func (p *PresetsPlugin) Shutdown() error {
	return nil
}

func (p *PresetsPlugin) handleList(c *fiber.Ctx) error {
	list := p.store.List()
	return SendSuccess(c, map[string]interface{}{
		"presets": list,
		"count":   len(list),
	}, "")
}

func (p *PresetsPlugin) handleGet(c *fiber.Ctx) error {
	preset, err := p.store.Get(c.Params("name"))
	if err != nil {
		return SendError(c, 404, err)
	}
	return SendSuccess(c, preset, "")
}

// handleSave stores the request body's config, or the radar's active
// configuration when the body has none.
func (p *PresetsPlugin) handleSave(c *fiber.Ctx) error {
	var req struct {
		Description string        `json:"description"`
		Config      *bgt60.Config `json:"config"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}

	var cfg bgt60.Config
	switch {
	case req.Config != nil:
		cfg = *req.Config
	case p.radar != nil:
		active, _, ok := p.radar.Config()
		if !ok {
			return SendErrorMessage(c, 409, "No config in request and radar is not configured")
		}
		cfg = active
	default:
		return SendErrorMessage(c, 400, "Missing config")
	}
	if err := cfg.CheckFIFOLimit(bgt60.TR13C, false); err != nil {
		return SendError(c, 400, err)
	}

	name := c.Params("name")
	if err := p.store.Save(name, req.Description, cfg); err != nil {
		return SendError(c, 500, err)
	}
	return SendSuccess(c, map[string]interface{}{"name": name}, "Preset saved")
}

func (p *PresetsPlugin) handleDelete(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := p.store.Delete(name); err != nil {
		status := 400
		if errors.Is(err, ErrPresetNotFound) {
			status = 404
		}
		return SendError(c, status, err)
	}
	return SendSuccess(c, nil, "Preset deleted")
}

// Register the plugin
func init() {
	Register("presets", func(config interface{}) (Plugin, error) {
		configMap, ok := config.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid config for presets plugin")
		}
		store, _ := configMap["store"].(*PresetStore)
		radar, _ := configMap["radar"].(*RadarController)
		return NewPresetsPlugin(store, radar)
	})
}

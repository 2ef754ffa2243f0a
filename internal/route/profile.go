package route

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tradepilot/internal/logger"
	"tradepilot/internal/pkg/symbol"
)

// VenueSpec declares what a venue can trade, as written in the profile file.
type VenueSpec struct {
	Capabilities []string `mapstructure:"capabilities" yaml:"capabilities"`
}

// ProfileFile maps the routing-profile YAML document.
type ProfileFile struct {
	Venues map[string]VenueSpec         `mapstructure:"venues" yaml:"venues"`
	Modes  map[string]map[string]string `mapstructure:"modes" yaml:"modes"`
}

// Snapshot is an immutable view of the loaded profile.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Venues   map[string]VenueSpec
	Modes    map[string]map[string]string
}

// ChangeListener fires after a successful reload.
type ChangeListener func(Snapshot)

// Blocked is the routing-table sentinel that forbids a class under a mode.
const Blocked = "blocked"

// profileSchema validates the profile document shape before it is accepted.
// A reload that fails validation keeps the previous snapshot.
const profileSchema = `{
	"type": "object",
	"required": ["venues", "modes"],
	"properties": {
		"venues": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {
				"type": "object",
				"required": ["capabilities"],
				"properties": {
					"capabilities": {
						"type": "array",
						"minItems": 1,
						"items": {"enum": ["stocks", "etfs", "crypto", "options"]}
					}
				}
			}
		},
		"modes": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {
				"type": "object",
				"additionalProperties": {"type": "string"}
			}
		}
	}
}`

// ProfileRegistry loads the routing profile from disk and follows file
// changes. Lookups read the current snapshot under a read lock.
type ProfileRegistry struct {
	path   string
	v      *viper.Viper
	schema *jsonschema.Schema

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

func NewProfileRegistry(path string) (*ProfileRegistry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("routing profile requires a path")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("profile.json", strings.NewReader(profileSchema)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("profile.json")
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read routing profile failed: %w", err)
	}
	r := &ProfileRegistry{path: path, v: v, schema: schema}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("routing profile reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// OnChange registers a listener invoked after each successful reload.
func (r *ProfileRegistry) OnChange(fn ChangeListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Snapshot returns the current profile view.
func (r *ProfileRegistry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// VenueFor resolves the venue name for a class under a mode. The second
// return is false when the mode or class has no entry; the Blocked sentinel
// is returned as-is for the caller to interpret.
func (r *ProfileRegistry) VenueFor(mode string, class symbol.Class) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, ok := r.snapshot.Modes[strings.TrimSpace(mode)]
	if !ok {
		return "", false
	}
	name, ok := table[string(class)]
	return name, ok
}

// VenueCapabilities returns the declared instrument classes for a venue name.
func (r *ProfileRegistry) VenueCapabilities(name string) ([]symbol.Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.snapshot.Venues[name]
	if !ok {
		return nil, false
	}
	classes := make([]symbol.Class, 0, len(spec.Capabilities))
	for _, c := range spec.Capabilities {
		classes = append(classes, symbol.Class(c))
	}
	return classes, true
}

func (r *ProfileRegistry) reload() error {
	file, err := readProfileFile(r.path, r.schema)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Venues:   file.Venues,
		Modes:    file.Modes,
	}
	r.mu.Unlock()
	logger.Infof("routing profile loaded %d venues, %d modes from %s",
		len(file.Venues), len(file.Modes), filepath.Base(r.path))
	return nil
}

func (r *ProfileRegistry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("routing profile listener panic: %v", rec)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Venues:   make(map[string]VenueSpec, len(src.Venues)),
		Modes:    make(map[string]map[string]string, len(src.Modes)),
	}
	for name, spec := range src.Venues {
		dst.Venues[name] = spec
	}
	for mode, table := range src.Modes {
		t := make(map[string]string, len(table))
		for class, v := range table {
			t[class] = v
		}
		dst.Modes[mode] = t
	}
	return dst
}

func readProfileFile(path string, schema *jsonschema.Schema) (ProfileFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ProfileFile{}, fmt.Errorf("read routing profile failed: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return ProfileFile{}, fmt.Errorf("parse routing profile failed: %w", err)
	}
	if err := schema.Validate(normalizeYAML(doc)); err != nil {
		return ProfileFile{}, fmt.Errorf("routing profile invalid: %w", err)
	}

	var file ProfileFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return ProfileFile{}, fmt.Errorf("parse routing profile failed: %w", err)
	}
	return file, nil
}

// normalizeYAML rewrites yaml map keys to strings so the document can be
// validated as JSON.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = normalizeYAML(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[fmt.Sprint(k)] = normalizeYAML(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = normalizeYAML(child)
		}
		return out
	default:
		return val
	}
}

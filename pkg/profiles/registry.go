package profiles

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"jordanella.com/auto-shake-go/internal/config"
	"jordanella.com/auto-shake-go/internal/cv"
	"jordanella.com/auto-shake-go/internal/input"
	"jordanella.com/auto-shake-go/internal/policy"
)

// DefaultProfile is the built-in preset for the fishing shake prompt
const DefaultProfile = "shake"

// Profile is a named detection preset. Applying one replaces the whole
// detection setup; see ApplyTo for how omitted fields are filled.
type Profile struct {
	Name          string  `yaml:"name"`
	Description   string  `yaml:"description,omitempty"`
	TargetColor   string  `yaml:"target_color"`
	Tolerance     float64 `yaml:"tolerance"`
	Metric        string  `yaml:"metric,omitempty"`
	SampleStep    int     `yaml:"sample_step,omitempty"`
	MinCoverage   float64 `yaml:"min_coverage,omitempty"`
	MinBlobWidth  int     `yaml:"min_blob_width,omitempty"`
	MinBlobHeight int     `yaml:"min_blob_height,omitempty"`
	DebounceTicks int     `yaml:"debounce_ticks,omitempty"`
	Mode          string  `yaml:"mode,omitempty"`
	Button        string  `yaml:"button,omitempty"`
}

// ProfileFile represents the structure of a profile YAML file
type ProfileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// Shake returns the built-in profile: a white marker at least 41x41
// answered with a tap of enter
func Shake() Profile {
	return Profile{
		Name:          DefaultProfile,
		Description:   "White shake prompt, tap enter",
		TargetColor:   "#FFFFFF",
		Tolerance:     math.Round(15*math.Sqrt(3)*100) / 100,
		Metric:        cv.MetricEuclidean.String(),
		SampleStep:    2,
		MinBlobWidth:  41,
		MinBlobHeight: 41,
		Mode:          policy.ModeTap.String(),
		Button:        string(input.DefaultButton),
	}
}

// Validate checks that every set field parses
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if _, err := cv.ParseHexColor(p.TargetColor); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}
	if p.Tolerance < 0 {
		return fmt.Errorf("profile %s: tolerance must not be negative", p.Name)
	}
	if p.Metric != "" {
		if _, err := cv.ParseMetric(p.Metric); err != nil {
			return fmt.Errorf("profile %s: %w", p.Name, err)
		}
	}
	if p.Mode != "" {
		if _, err := policy.ParseMode(p.Mode); err != nil {
			return fmt.Errorf("profile %s: %w", p.Name, err)
		}
	}
	if p.Button != "" {
		if _, err := input.ParseButton(p.Button); err != nil {
			return fmt.Errorf("profile %s: %w", p.Name, err)
		}
	}
	return nil
}

// ApplyTo replaces cfg's detection and policy fields with the profile's.
// Nothing from the previous profile survives: an omitted scan setting falls
// back to the built-in default, and an omitted gate (coverage, blob size) is
// off.
func (p Profile) ApplyTo(cfg *config.Config) {
	th := cv.DefaultThresholds()
	pc := policy.DefaultConfig()

	d := &cfg.Detection
	d.Profile = p.Name
	d.TargetColor = p.TargetColor
	d.Tolerance = p.Tolerance
	d.Metric = orString(p.Metric, th.Metric.String())
	d.SampleStep = orInt(p.SampleStep, th.SampleStep)
	d.MinCoverage = p.MinCoverage
	d.MinBlobWidth = p.MinBlobWidth
	d.MinBlobHeight = p.MinBlobHeight

	cfg.Policy.DebounceTicks = orInt(p.DebounceTicks, pc.DebounceTicks)
	cfg.Policy.Mode = orString(p.Mode, pc.Mode.String())
	cfg.Policy.Button = orString(p.Button, string(pc.Button))
}

func orString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// Registry holds named profiles loaded from YAML files
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewRegistry creates a registry holding the built-in profile
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Profile)}
	shake := Shake()
	r.profiles[shake.Name] = shake
	return r
}

// LoadFromFile loads profiles from a YAML file. A profile with the same name
// as an existing one replaces it.
func (r *Registry) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read profile file %s: %w", filePath, err)
	}

	var file ProfileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal profile YAML: %w", err)
	}

	for i, p := range file.Profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %d: %w", i+1, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range file.Profiles {
		r.profiles[p.Name] = p
	}
	return nil
}

// LoadFromDirectory loads all YAML files from a directory
func (r *Registry) LoadFromDirectory(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read profile directory %s: %w", dirPath, err)
	}

	var loadErrors []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		if err := r.LoadFromFile(filepath.Join(dirPath, entry.Name())); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("file %s: %w", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d profile files (first error): %w", len(loadErrors), loadErrors[0])
	}
	return nil
}

// Load reads path as a directory or a single file. A missing path is not an error.
func (r *Registry) Load(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return r.LoadFromDirectory(path)
	}
	return r.LoadFromFile(path)
}

// SaveToFile writes every profile to a YAML file
func (r *Registry) SaveToFile(filePath string) error {
	r.mu.RLock()
	file := ProfileFile{Profiles: make([]Profile, 0, len(r.profiles))}
	for _, name := range r.namesLocked() {
		file.Profiles = append(file.Profiles, r.profiles[name])
	}
	r.mu.RUnlock()

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	return os.WriteFile(filePath, data, 0644)
}

// Get retrieves a profile by name
func (r *Registry) Get(name string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[name]
	return p, ok
}

// Register adds a profile to the registry programmatically
func (r *Registry) Register(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[p.Name] = p
	return nil
}

// Has checks if a profile exists in the registry
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns all profile names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of profiles in the registry
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.profiles)
}

// Remove removes a profile. The built-in profile cannot be removed.
func (r *Registry) Remove(name string) bool {
	if name == DefaultProfile {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[name]; ok {
		delete(r.profiles, name)
		return true
	}
	return false
}

// Apply looks up name and applies it to cfg
func (r *Registry) Apply(name string, cfg *config.Config) error {
	p, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	p.ApplyTo(cfg)
	return nil
}

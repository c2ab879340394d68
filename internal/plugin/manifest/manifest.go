package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// File names probed in a plugin directory, in order.
const (
	YAMLFile    = "plugin.yaml"
	JSONFile    = "plugin.json"
	DefaultMain = "init.lua"
)

// Manifest describes a script plugin.
type Manifest struct {
	Name         string   `yaml:"name" json:"name"`
	Version      string   `yaml:"version" json:"version"`
	Description  string   `yaml:"description" json:"description"`
	Main         string   `yaml:"main" json:"main"`
	Dependencies []string `yaml:"dependencies" json:"dependencies"`

	dir string
}

var (
	namePattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
	semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)
)

// Load reads and validates a manifest file. The format follows the file
// extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(data, &m)
	default:
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	m.dir = filepath.Dir(path)
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadDir loads the manifest of a plugin directory, preferring plugin.yaml.
func LoadDir(dir string) (*Manifest, error) {
	for _, name := range []string{YAMLFile, JSONFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return nil, fmt.Errorf("%w in %s", ErrNoEntryPoint, dir)
}

// Minimal creates the manifest of a plugin that ships without one.
func Minimal(name, dir, main string) *Manifest {
	m := &Manifest{Name: name, Main: main, dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = DefaultMain
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks that the manifest is usable.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}
	if filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}
	for _, dep := range m.Dependencies {
		if !namePattern.MatchString(dep) {
			return fmt.Errorf("%w: dependency %q", ErrInvalidName, dep)
		}
	}
	return nil
}

// Dir returns the plugin directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// MainPath returns the full path of the Lua entry file.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.dir, m.Main)
}

// String returns "name vX.Y.Z".
func (m *Manifest) String() string {
	return fmt.Sprintf("%s v%s", m.Name, m.Version)
}

// Clone creates a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	c := *m
	c.Dependencies = slices.Clone(m.Dependencies)
	return &c
}

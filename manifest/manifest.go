// Package manifest handles icint.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/icint/vm"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "icint.toml"

// Manifest represents an icint.toml project configuration.
type Manifest struct {
	Machine Machine     `toml:"machine"`
	Program Program     `toml:"program"`
	Log     Log         `toml:"log"`
	Image   ImageConfig `toml:"image"`

	// Dir is the directory containing the icint.toml file (set at load time).
	Dir string `toml:"-"`
}

// Machine sizes the interpreter. Zero values select the reference sizes.
type Machine struct {
	Words  int    `toml:"words"`
	Origin int    `toml:"origin"`
	Labels int    `toml:"labels"`
	Seed   uint64 `toml:"seed"`
}

// Program lists the code units to load and the default stream bindings.
type Program struct {
	Units      []string `toml:"units"`
	Input      string   `toml:"input"`
	Output     string   `toml:"output"`
	ExitStatus bool     `toml:"exit-status"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
	Trace     bool   `toml:"trace"`
}

// ImageConfig configures image snapshots and the image store.
type ImageConfig struct {
	Output string `toml:"output"`
	Store  string `toml:"store"`
	Name   string `toml:"name"`
}

// Load parses an icint.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find an icint.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) validate() error {
	switch {
	case m.Machine.Words < 0:
		return fmt.Errorf("machine.words must not be negative")
	case m.Machine.Origin < 0:
		return fmt.Errorf("machine.origin must not be negative")
	case m.Machine.Labels < 0:
		return fmt.Errorf("machine.labels must not be negative")
	}
	return nil
}

// MachineConfig returns the interpreter configuration described by the
// manifest, starting from the reference defaults.
func (m *Manifest) MachineConfig() vm.Config {
	cfg := vm.DefaultConfig()
	if m == nil {
		return cfg
	}
	if m.Machine.Words != 0 {
		cfg.WordCount = m.Machine.Words
	}
	if m.Machine.Origin != 0 {
		cfg.Origin = m.Machine.Origin
	}
	if m.Machine.Labels != 0 {
		cfg.LabelCount = m.Machine.Labels
	}
	if m.Machine.Seed != 0 {
		cfg.Seed = m.Machine.Seed
	}
	cfg.Trace = m.Log.Trace
	return cfg
}

// UnitPaths returns the code units resolved against the manifest directory.
func (m *Manifest) UnitPaths() []string {
	var paths []string
	for _, u := range m.Program.Units {
		paths = append(paths, m.Path(u))
	}
	return paths
}

// Path resolves a manifest-relative path. Empty and absolute paths are
// returned unchanged.
func (m *Manifest) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// Package manifest handles lox.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file looked up by FindAndLoad.
const FileName = "lox.toml"

// Manifest represents a lox.toml configuration.
type Manifest struct {
	Run    RunConfig    `toml:"run" json:"run"`
	Log    LogConfig    `toml:"log" json:"log"`
	Server ServerConfig `toml:"server" json:"server"`
	Cache  CacheConfig  `toml:"cache" json:"cache"`

	// Dir is the directory containing the lox.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// RunConfig selects how programs are executed.
type RunConfig struct {
	Trace       bool `toml:"trace" json:"trace"`
	Disassemble bool `toml:"disassemble" json:"disassemble"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	Path      string `toml:"path" json:"path"`
}

// ServerConfig configures the evaluation service listeners.
type ServerConfig struct {
	Addr     string `toml:"addr" json:"addr"`
	GRPCAddr string `toml:"grpc-addr" json:"grpc-addr"`
}

// CacheConfig configures the compiled chunk cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// Default returns the configuration used when no lox.toml exists.
func Default() *Manifest {
	return &Manifest{
		Log: LogConfig{Verbosity: 0},
		Server: ServerConfig{
			Addr:     "localhost:4567",
			GRPCAddr: "localhost:4568",
		},
		Cache: CacheConfig{
			Enabled: false,
			Path:    filepath.Join(".lox", "chunks.db"),
		},
	}
}

// Load parses and validates the lox.toml file in the given directory.
// Keys missing from the file keep their Default values.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses and validates the configuration file at path. Relative
// paths inside it resolve against the file's directory.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a lox.toml file, then loads and
// returns it. Returns nil if no file is found.
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

// CachePath returns the absolute path of the chunk cache database. Relative
// paths are resolved against the manifest directory.
func (m *Manifest) CachePath() string {
	if filepath.IsAbs(m.Cache.Path) || m.Dir == "" {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}

// LogPath returns the log file path, or nil to log to stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.Path == "" {
		return nil
	}
	p := m.Log.Path
	if !filepath.IsAbs(p) && m.Dir != "" {
		p = filepath.Join(m.Dir, p)
	}
	return &p
}

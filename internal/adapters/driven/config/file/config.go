// Package file loads configuration from a TOML file.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigDir is the directory under the home directory holding
// configuration and data.
const DefaultConfigDir = ".corpus"

// Config is the full configuration surface.
type Config struct {
	// DataDir is where the SQLite database lives
	// (default: ~/.corpus/data).
	DataDir string `toml:"data_dir"`

	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Chunk     ChunkConfig     `toml:"chunk"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Chat      ChatConfig      `toml:"chat"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai" or "ollama" (default: ollama).
	Provider string `toml:"provider"`

	Model      string `toml:"model"`
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Dimensions int    `toml:"dimensions"`
}

// LLMConfig selects and configures the generation provider.
type LLMConfig struct {
	// Provider is "openai" or "ollama" (default: ollama).
	Provider string `toml:"provider"`

	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// ChunkConfig configures the chunker.
type ChunkConfig struct {
	TargetSize int    `toml:"target_size"`
	Overlap    int    `toml:"overlap"`
	Separator  string `toml:"separator"`
}

// RetrievalConfig configures retrieval defaults.
type RetrievalConfig struct {
	TopK     int     `toml:"top_k"`
	MinScore float64 `toml:"min_score"`
}

// ChatConfig configures conversation handling.
type ChatConfig struct {
	SystemPrompt string `toml:"system_prompt"`

	// StorageMode is "memory-only", "persist-all" or "smart"
	// (default: smart).
	StorageMode string `toml:"storage_mode"`

	// TransientTTL is the idle expiry window for in-memory
	// conversations, e.g. "30m".
	TransientTTL duration `toml:"transient_ttl"`

	// SweepInterval is how often expired conversations are reclaimed,
	// e.g. "5m".
	SweepInterval duration `toml:"sweep_interval"`
}

// duration wraps time.Duration with TOML string parsing ("30m", "1h").
type duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", string(text), err)
	}
	*d = duration(parsed)
	return nil
}

// MarshalText renders the duration in Go notation.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the wrapped time.Duration.
func (d duration) Duration() time.Duration {
	return time.Duration(d)
}

// DefaultPath returns the default config file location,
// ~/.corpus/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, "config.toml"), nil
}

// Load reads the config file at path, or the default location when path
// is empty. A missing file yields the zero Config without error;
// defaults are applied at wiring time.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
// Written with restricted permissions since it may hold API keys.
func Save(path string, cfg *Config) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

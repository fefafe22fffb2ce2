// Package config loads the gm8detect YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the data directory.
const FileName = "gm8detect.yaml"

// Config represents configuration for the gm8detect tool.
type Config struct {
	Debug              bool   `yaml:"debug" json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	DataDir            string `yaml:"dataDir" json:"dataDir" jsonschema:"title=Data Directory,description=Directory for log files and the config file"`
	LogLevel           string `yaml:"logLevel" json:"logLevel" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info"`
	Workers            int    `yaml:"workers" json:"workers" jsonschema:"title=Workers,description=Files classified concurrently by scan,minimum=1"`
	Descriptors        string `yaml:"descriptors" json:"descriptors,omitempty" jsonschema:"title=Descriptor Table,description=YAML file replacing the built-in antidec descriptor table"`
	HexdumpBytes       int    `yaml:"hexdumpBytes" json:"hexdumpBytes" jsonschema:"title=Hexdump Bytes,description=Bytes of game data header shown by --hexdump,minimum=16,default=128"`
	DisasmInstructions int    `yaml:"disasmInstructions" json:"disasmInstructions" jsonschema:"title=Disassembly Length,description=Loader stub instructions shown by --disasm,minimum=1,default=24"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DataDir:            defaultDataDir(),
		LogLevel:           "info",
		Workers:            runtime.NumCPU(),
		HexdumpBytes:       128,
		DisasmInstructions: 24,
	}
}

func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "gm8detect")
	}
	return ".gm8detect"
}

// Load reads path over the defaults. A missing file is not an error when
// path is the implicit one in the data directory.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Descriptors != "" && !filepath.IsAbs(cfg.Descriptors) {
		cfg.Descriptors = filepath.Join(filepath.Dir(path), cfg.Descriptors)
	}
	return cfg, cfg.Validate()
}

// Path returns the config file location inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// ApplyEnv lets GM8DETECT_LOG_LEVEL override the configured level.
func (c *Config) ApplyEnv() {
	if lvl := os.Getenv("GM8DETECT_LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1, got %d", c.Workers)
	}
	if c.HexdumpBytes < 16 {
		return fmt.Errorf("config: hexdumpBytes must be at least 16, got %d", c.HexdumpBytes)
	}
	if c.DisasmInstructions < 1 {
		return fmt.Errorf("config: disasmInstructions must be at least 1, got %d", c.DisasmInstructions)
	}
	return nil
}

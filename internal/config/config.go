package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/redeploy/internal/model"
)

// Config holds the tool paths and layout knobs for a deployment run.
// Zero values mean "use the default"; see Default.
type Config struct {
	// GitBin is the git executable. Default: "git" from PATH.
	GitBin string `json:"gitBin" yaml:"gitBin"`

	// CargoBin is the build tool executable. Default: "cargo" from PATH.
	CargoBin string `json:"cargoBin" yaml:"cargoBin"`

	// PM2Bin is the process supervisor executable. Default: "pm2" from PATH.
	PM2Bin string `json:"pm2Bin" yaml:"pm2Bin"`

	// ArtifactDir is the directory, relative to the application directory,
	// where the release build leaves the compiled binary.
	// Default: "target/release".
	ArtifactDir string `json:"artifactDir" yaml:"artifactDir"`

	// StartArgs are extra arguments forwarded to the started binary after
	// the port argument. Empty by default.
	StartArgs []string `json:"startArgs" yaml:"startArgs"`
}

// Default returns the built-in configuration: all tools resolved from
// PATH and cargo's standard release layout.
func Default() *Config {
	return &Config{
		GitBin:      "git",
		CargoBin:    "cargo",
		PM2Bin:      "pm2",
		ArtifactDir: filepath.Join("target", "release"),
	}
}

// candidateFiles are the config file names probed in the application
// directory, in precedence order.
var candidateFiles = []string{"redeploy.jsonc", "redeploy.yaml", "redeploy.yml"}

// Load builds the effective configuration for a run.
//
// If explicitPath is non-empty it must name an existing config file and
// is used as-is. Otherwise the application directory is probed for
// redeploy.jsonc, then redeploy.yaml, then redeploy.yml; the first hit
// wins and absence of all three is not an error.
//
// After the file layer, a .env file in the application directory is
// loaded (if present) and REDEPLOY_* environment variables are applied
// on top.
func Load(appDir, explicitPath string) (*Config, error) {
	cfg := Default()

	path := explicitPath
	if path == "" {
		path = discover(appDir)
	}
	if path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		cfg.merge(fileCfg)
	}

	// Load .env into the process environment before reading overrides.
	// A missing file is the normal case and not an error.
	_ = godotenv.Load(filepath.Join(appDir, ".env"))
	cfg.applyEnv()

	return cfg, nil
}

// discover returns the first existing candidate config file in appDir,
// or "" if none exists.
func discover(appDir string) string {
	for _, name := range candidateFiles {
		path := filepath.Join(appDir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// loadFile parses a config file, choosing the decoder by extension.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.KindGeneral,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, model.WrapCLIError(model.KindGeneral,
				fmt.Sprintf("failed to parse config file %s", path), err)
		}
	default:
		// JSONC: strip comments and trailing commas, then parse as
		// ordinary JSON.
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, model.WrapCLIError(model.KindGeneral,
				fmt.Sprintf("failed to parse config file %s", path), err)
		}
	}
	return cfg, nil
}

// merge overlays non-zero values from other onto c.
func (c *Config) merge(other *Config) {
	if other.GitBin != "" {
		c.GitBin = other.GitBin
	}
	if other.CargoBin != "" {
		c.CargoBin = other.CargoBin
	}
	if other.PM2Bin != "" {
		c.PM2Bin = other.PM2Bin
	}
	if other.ArtifactDir != "" {
		c.ArtifactDir = other.ArtifactDir
	}
	if len(other.StartArgs) > 0 {
		c.StartArgs = other.StartArgs
	}
}

// applyEnv overlays REDEPLOY_* environment variables onto c.
func (c *Config) applyEnv() {
	if v := os.Getenv("REDEPLOY_GIT_BIN"); v != "" {
		c.GitBin = v
	}
	if v := os.Getenv("REDEPLOY_CARGO_BIN"); v != "" {
		c.CargoBin = v
	}
	if v := os.Getenv("REDEPLOY_PM2_BIN"); v != "" {
		c.PM2Bin = v
	}
}

// Package config loads the application settings shared by the CLI and the
// HTTP server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"gopkg.in/yaml.v3"
)

const DefaultFile = "chromadna.yaml"

type Config struct {
	DBPath      string `yaml:"db_path"`
	PostgresURL string `yaml:"postgres_url"`
	TempDir     string `yaml:"temp_dir"`
	LogLevel    string `yaml:"log_level"`

	Match   MatchConfig   `yaml:"match"`
	Segment SegmentConfig `yaml:"segment"`
	Index   IndexConfig   `yaml:"index"`
	Server  ServerConfig  `yaml:"server"`
}

type MatchConfig struct {
	Models []string `yaml:"models"`
	Bins   int      `yaml:"bins"`
	Metric string   `yaml:"metric"`
	// Weights per color model; missing models weigh 1.
	Weights   map[string]float64 `yaml:"weights"`
	SkipEmpty bool               `yaml:"skip_empty"`
}

// ModelWeights parses the weights keys into color models.
func (m MatchConfig) ModelWeights() (map[models.ColorModel]float64, error) {
	weights := make(map[models.ColorModel]float64, len(m.Weights))
	for name, w := range m.Weights {
		cm, err := models.ParseColorModel(name)
		if err != nil {
			return nil, fmt.Errorf("match.weights: %w", err)
		}
		weights[cm] = w
	}
	return weights, nil
}

type SegmentConfig struct {
	Model     string  `yaml:"model"`
	Threshold float64 `yaml:"threshold"`
}

type IndexConfig struct {
	Workers int `yaml:"workers"`
}

type ServerConfig struct {
	Port      string `yaml:"port"`
	UploadDir string `yaml:"upload_dir"`
	// MaxUploadMB bounds multipart uploads.
	MaxUploadMB int64 `yaml:"max_upload_mb"`
}

func Default() *Config {
	return &Config{
		DBPath:   "chromadna.sqlite3",
		TempDir:  filepath.Join(os.TempDir(), "chromadna"),
		LogLevel: "info",
		Match: MatchConfig{
			Models: []string{"gray", "rgb", "hsv"},
			Bins:   16,
			Metric: "chisquare",
		},
		Segment: SegmentConfig{
			Model:     "hsv",
			Threshold: 0.5,
		},
		Index: IndexConfig{
			Workers: 1,
		},
		Server: ServerConfig{
			Port:        "8080",
			UploadDir:   filepath.Join(os.TempDir(), "chromadna-uploads"),
			MaxUploadMB: 512,
		},
	}
}

// Load reads path (or the first default location found) over the defaults and
// then applies CHROMA_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("CHROMA_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CHROMA_POSTGRES_URL"); v != "" {
		cfg.PostgresURL = v
	}
	if v := os.Getenv("CHROMA_TEMP_DIR"); v != "" {
		cfg.TempDir = v
	}
	if v := os.Getenv("CHROMA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CHROMA_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHROMA_WORKERS: %w", err)
		}
		cfg.Index.Workers = n
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func findConfigFile() string {
	candidates := []string{
		"./" + DefaultFile,
		"./chromadna.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".chromadna", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/patternmix-go/internal/instrument"
	"github.com/cbegin/patternmix-go/internal/pcm"
	"github.com/cbegin/patternmix-go/internal/render"
)

// Config holds all render settings. Values come from Default, then an
// optional YAML file, then PATTERNMIX_* environment variables.
type Config struct {
	BPM                   float64 `yaml:"bpm"`
	TimeSignatureBeats    int     `yaml:"time_signature_beats"`
	ReferenceLoudnessDBFS float64 `yaml:"reference_loudness_dbfs"`
	SilenceThresholdDB    float64 `yaml:"silence_threshold_db"`
	SilenceWindowMs       float64 `yaml:"silence_window_ms"`
	RepeatCount           int     `yaml:"repeat_count"`

	SampleRate int `yaml:"sample_rate"`
	Workers    int `yaml:"workers"`

	// AssetDir is where relative instrument paths are resolved.
	AssetDir    string           `yaml:"asset_dir"`
	Instruments instrument.Table `yaml:"instruments"`
}

func Default() Config {
	return Config{
		BPM:                   120,
		TimeSignatureBeats:    4,
		ReferenceLoudnessDBFS: pcm.DefaultReferenceDBFS,
		SilenceThresholdDB:    pcm.DefaultSilenceThresholdDB,
		SilenceWindowMs:       pcm.DefaultSilenceWindowMs,
		RepeatCount:           2,
		SampleRate:            44100,
		Workers:               4,
		AssetDir:              "Sounds",
		Instruments:           instrument.DefaultTable(),
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. An instruments table in the file
// replaces the default table rather than extending it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		cfg.Instruments = nil
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if cfg.Instruments == nil {
			cfg.Instruments = instrument.DefaultTable()
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.BPM = envFloat("PATTERNMIX_BPM", c.BPM)
	c.TimeSignatureBeats = envInt("PATTERNMIX_TIME_SIGNATURE", c.TimeSignatureBeats)
	c.ReferenceLoudnessDBFS = envFloat("PATTERNMIX_REF_DBFS", c.ReferenceLoudnessDBFS)
	c.SilenceThresholdDB = envFloat("PATTERNMIX_SILENCE_DB", c.SilenceThresholdDB)
	c.SilenceWindowMs = envFloat("PATTERNMIX_SILENCE_WINDOW_MS", c.SilenceWindowMs)
	c.RepeatCount = envInt("PATTERNMIX_REPEAT", c.RepeatCount)
	c.SampleRate = envInt("PATTERNMIX_SAMPLE_RATE", c.SampleRate)
	c.Workers = envInt("PATTERNMIX_WORKERS", c.Workers)
	c.AssetDir = envStr("PATTERNMIX_ASSET_DIR", c.AssetDir)
}

func (c Config) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("no instruments configured")
	}
	return c.RenderOptions().Validate()
}

// BarDurationMs is the length of one bar for the configured tempo.
func (c Config) BarDurationMs() float64 {
	return render.BarDurationMs(c.BPM, c.TimeSignatureBeats)
}

// Format is the render format: stereo at the configured sample rate.
func (c Config) Format() pcm.Format {
	return pcm.Format{SampleRate: c.SampleRate, Channels: 2}
}

func (c Config) RenderOptions() render.Options {
	return render.Options{
		Format:             c.Format(),
		BPM:                c.BPM,
		TimeSignatureBeats: c.TimeSignatureBeats,
		ReferenceDBFS:      c.ReferenceLoudnessDBFS,
		SilenceThresholdDB: c.SilenceThresholdDB,
		SilenceWindowMs:    c.SilenceWindowMs,
		RepeatCount:        c.RepeatCount,
		Workers:            c.Workers,
	}
}

// Bank returns a file-backed instrument bank for the configured table.
func (c Config) Bank() *instrument.FileBank {
	return instrument.NewFileBank(c.AssetDir, c.Instruments, c.Format())
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

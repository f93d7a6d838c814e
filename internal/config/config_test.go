package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cbegin/patternmix-go/internal/instrument"
)

var envVars = []string{
	"PATTERNMIX_BPM", "PATTERNMIX_TIME_SIGNATURE", "PATTERNMIX_REF_DBFS",
	"PATTERNMIX_SILENCE_DB", "PATTERNMIX_SILENCE_WINDOW_MS", "PATTERNMIX_REPEAT", "PATTERNMIX_SAMPLE_RATE",
	"PATTERNMIX_WORKERS", "PATTERNMIX_ASSET_DIR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BPM != 120 {
		t.Errorf("BPM = %v, want 120", cfg.BPM)
	}
	if cfg.TimeSignatureBeats != 4 {
		t.Errorf("TimeSignatureBeats = %d, want 4", cfg.TimeSignatureBeats)
	}
	if cfg.ReferenceLoudnessDBFS != -20 {
		t.Errorf("ReferenceLoudnessDBFS = %v, want -20", cfg.ReferenceLoudnessDBFS)
	}
	if cfg.SilenceThresholdDB != -50 {
		t.Errorf("SilenceThresholdDB = %v, want -50", cfg.SilenceThresholdDB)
	}
	if cfg.RepeatCount != 2 {
		t.Errorf("RepeatCount = %d, want 2", cfg.RepeatCount)
	}
	if cfg.BarDurationMs() != 2000 {
		t.Errorf("BarDurationMs = %v, want 2000", cfg.BarDurationMs())
	}
	if _, ok := cfg.Instruments["tribal drum"]; !ok {
		t.Errorf("default instruments missing 'tribal drum': %v", cfg.Instruments)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PATTERNMIX_BPM", "60")
	t.Setenv("PATTERNMIX_TIME_SIGNATURE", "3")
	t.Setenv("PATTERNMIX_REPEAT", "5")
	t.Setenv("PATTERNMIX_SAMPLE_RATE", "48000")
	t.Setenv("PATTERNMIX_ASSET_DIR", "/srv/samples")
	t.Setenv("PATTERNMIX_SILENCE_WINDOW_MS", "2.5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BPM != 60 || cfg.TimeSignatureBeats != 3 || cfg.RepeatCount != 5 {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.BarDurationMs() != 3000 {
		t.Errorf("BarDurationMs = %v, want 3000", cfg.BarDurationMs())
	}
	if cfg.Format().SampleRate != 48000 || cfg.Format().Channels != 2 {
		t.Errorf("Format = %v, want 48000 Hz stereo", cfg.Format())
	}
	if cfg.AssetDir != "/srv/samples" {
		t.Errorf("AssetDir = %q", cfg.AssetDir)
	}
	if cfg.SilenceWindowMs != 2.5 {
		t.Errorf("SilenceWindowMs = %v, want 2.5", cfg.SilenceWindowMs)
	}
}

func TestLoadIgnoresUnparseableEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PATTERNMIX_BPM", "fast")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BPM != 120 {
		t.Errorf("BPM = %v, want fallback 120", cfg.BPM)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "patternmix.yaml")
	doc := "bpm: 90\nrepeat_count: 1\nsilence_window_ms: 5\ninstruments:\n  cowbell: cowbell.wav\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PATTERNMIX_REPEAT", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BPM != 90 {
		t.Errorf("BPM = %v, want 90 from file", cfg.BPM)
	}
	if cfg.SilenceWindowMs != 5 {
		t.Errorf("SilenceWindowMs = %v, want 5", cfg.SilenceWindowMs)
	}
	if cfg.RepeatCount != 3 {
		t.Errorf("RepeatCount = %d, want env override 3", cfg.RepeatCount)
	}
	if len(cfg.Instruments) != 1 || cfg.Instruments["cowbell"] != "cowbell.wav" {
		t.Errorf("instruments = %v, want only the cowbell entry from file", cfg.Instruments)
	}
}

func TestLoadYAMLWithoutInstrumentsKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "patternmix.yaml")
	if err := os.WriteFile(path, []byte("bpm: 100\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Instruments) != len(instrument.DefaultTable()) {
		t.Errorf("instruments = %v, want the default table", cfg.Instruments)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"zero bpm":       "bpm: 0\n",
		"negative beats": "time_signature_beats: -4\n",
		"zero window":    "silence_window_ms: 0\n",
		"negative loop":  "repeat_count: -1\n",
		"bad yaml":       "bpm: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error for %q", doc)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

package config

import (
	"os"
	"testing"
)

func TestDefaults(t *testing.T) {
	conf := Default()

	if conf.GetInt("MaxTranscoders") != 4 {
		t.Errorf("expected MaxTranscoders default 4, got %d", conf.GetInt("MaxTranscoders"))
	}
	if conf.GetInt("MaxQueueSize") != 1000 {
		t.Errorf("expected MaxQueueSize default 1000, got %d", conf.GetInt("MaxQueueSize"))
	}
	if conf.GetFloat64("CrossfadeSec") != 3.0 {
		t.Errorf("expected CrossfadeSec default 3.0, got %f", conf.GetFloat64("CrossfadeSec"))
	}
	if conf.GetInt("DefaultBitrate") != 256000 {
		t.Errorf("expected DefaultBitrate default 256000, got %d", conf.GetInt("DefaultBitrate"))
	}
	if conf.GetString("LogLevel") != "info" {
		t.Errorf("expected LogLevel default info, got %s", conf.GetString("LogLevel"))
	}
}

func TestLoadINIOverridesDefaults(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "test_config_*.ini")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	configContent := `MaxTranscoders = 2
MaxQueueSize = 50
Database = custom.db
LogLevel = debug
CrossfadeSec = 1.5
EnableResolver = false
`

	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatalf("write config: %v", err)
	}
	tmpFile.Close()

	conf, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if conf.GetInt("MaxTranscoders") != 2 {
		t.Errorf("expected MaxTranscoders=2, got %d", conf.GetInt("MaxTranscoders"))
	}
	if conf.GetInt("MaxQueueSize") != 50 {
		t.Errorf("expected MaxQueueSize=50, got %d", conf.GetInt("MaxQueueSize"))
	}
	if conf.GetString("Database") != "custom.db" {
		t.Errorf("expected Database=custom.db, got %s", conf.GetString("Database"))
	}
	if conf.GetFloat64("CrossfadeSec") != 1.5 {
		t.Errorf("expected CrossfadeSec=1.5, got %f", conf.GetFloat64("CrossfadeSec"))
	}
	if conf.GetBool("EnableResolver") {
		t.Errorf("expected EnableResolver=false")
	}

	// Untouched keys keep their defaults.
	if conf.GetInt("HistorySize") != 50 {
		t.Errorf("expected HistorySize default 50, got %d", conf.GetInt("HistorySize"))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does_not_exist.ini"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestSetOverride(t *testing.T) {
	conf := Default()
	conf.Set("MaxTranscoders", 9)
	if conf.GetInt("MaxTranscoders") != 9 {
		t.Errorf("expected Set to override, got %d", conf.GetInt("MaxTranscoders"))
	}
}

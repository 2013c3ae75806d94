package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return filename
}

// Flags set with flag.Set stay set for the whole test binary,
// so all layers are checked in a single test, lowest precedence first.
func TestLoadConfigLayers(t *testing.T) {
	t.Setenv("PORT", "")
	configFilenameFlag = ""
	t.Cleanup(func() { configFilenameFlag = "" })

	// defaults
	config, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if config.Port != 3000 || config.VideoPath != "sample.mp4" {
		t.Fatalf("Default config is %+v", config)
	}

	// config file overrides defaults
	configFilenameFlag = writeConfigFile(t, `
port: 4000
videoPath: /yaml/sample.mp4
baseUrl: http://yaml.test
`)
	config, err = loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if config.Port != 4000 || config.VideoPath != "/yaml/sample.mp4" || config.BaseURL != "http://yaml.test" {
		t.Fatalf("Config from file is %+v", config)
	}

	// PORT overrides the config file
	t.Setenv("PORT", "5000")
	config, err = loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if config.Port != 5000 || config.VideoPath != "/yaml/sample.mp4" {
		t.Fatalf("Config with PORT is %+v", config)
	}

	// flags that were set override everything
	if err := flag.Set("port", "6000"); err != nil {
		t.Fatal(err)
	}
	if err := flag.Set("video", "/flag/sample.mp4"); err != nil {
		t.Fatal(err)
	}
	config, err = loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if config.Port != 6000 || config.VideoPath != "/flag/sample.mp4" {
		t.Fatalf("Config with flags is %+v", config)
	}
	// unset flags do not clobber lower layers
	if config.BaseURL != "http://yaml.test" {
		t.Fatalf("Base URL is %q", config.BaseURL)
	}

	t.Setenv("PORT", "not-a-port")
	if _, err := loadConfig(); err == nil {
		t.Fatal("Expected error for invalid PORT")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	configFilenameFlag = filepath.Join(t.TempDir(), "missing.yml")
	t.Cleanup(func() { configFilenameFlag = "" })

	if _, err := loadConfig(); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestOpenVersions(t *testing.T) {
	versions, closeVersions, err := openVersions("memory", "memory")
	if err != nil {
		t.Fatal(err)
	}
	if version, _ := versions.Current("resource"); version != 1 {
		t.Fatalf("Version is %d", version)
	}
	if err := closeVersions(); err != nil {
		t.Fatal(err)
	}

	versions, closeVersions, err = openVersions("sqlite", filepath.Join(t.TempDir(), "versions.db"))
	if err != nil {
		t.Fatal(err)
	}
	if ok, _, err := versions.CompareAndIncrement("resource", 1); !ok || err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := closeVersions(); err != nil {
		t.Fatal(err)
	}

	if _, _, err := openVersions("redis", ""); err == nil {
		t.Fatal("Expected error for unknown store")
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_YAML(t *testing.T) {
	t.Setenv("TEST_CITY", "Lyon")

	data := `
extensionId: weather-1
storageLocation: /tmp/weather
devMode: true
geometry:
  width: 4
  height: 2
  origin: {x: 2, y: 3}
authorization:
  apiKey: k123
applet:
  defaults:
    units: metric
  user:
    city: ${TEST_CITY}
    zone: ${UNSET_ZONE:-Europe}
`
	root, err := Parse([]byte(data), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	snap, err := Normalize(root)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if snap.ExtensionID() != "weather-1" {
		t.Errorf("ExtensionID() = %q", snap.ExtensionID())
	}
	if !snap.DevMode() {
		t.Error("DevMode() = false")
	}
	g := snap.Geometry()
	if g.Width != 4 || g.Height != 2 || g.Origin.X != 2 || g.Origin.Y != 3 {
		t.Errorf("Geometry() = %+v origin %+v", g, *g.Origin)
	}
	if snap.Authorization().APIKey != "k123" {
		t.Errorf("APIKey = %q", snap.Authorization().APIKey)
	}
	if v, _ := snap.String("city"); v != "Lyon" {
		t.Errorf("city = %q", v)
	}
	if v, _ := snap.String("zone"); v != "Europe" {
		t.Errorf("zone = %q", v)
	}
	if snap.StorageLocation() != "/tmp/weather" {
		t.Errorf("StorageLocation() = %q", snap.StorageLocation())
	}
}

func TestParse_TOML(t *testing.T) {
	data := `
extensionId = "clock"

[geometry]
width = 3
height = 1

[geometry.defaults.origin]
x = 7
y = 0

[applet.user]
format = "24h"
`
	root, err := Parse([]byte(data), FormatTOML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	snap, err := Normalize(root)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if snap.Geometry().Origin.X != 7 {
		t.Errorf("origin = %+v, want defaults origin", *snap.Geometry().Origin)
	}
	if v, _ := snap.String("format"); v != "24h" {
		t.Errorf("format = %q", v)
	}
}

func TestParse_JSON(t *testing.T) {
	root, err := Parse([]byte(`{"extensionId":"x","geometry":{"width":2,"height":2}}`), FormatJSON)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if root.ExtensionID != "x" || root.Geometry.Width != 2 {
		t.Errorf("root = %+v", root)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		want   string
	}{
		{"invalid yaml", "geometry: [", FormatYAML, "parse"},
		{"invalid toml", "geometry = {", FormatTOML, "parse"},
		{"invalid json", "{", FormatJSON, "parse"},
		{"missing env var", "extensionId: ${MISSING_VAR}", FormatYAML, "MISSING_VAR"},
		{"zero width", "geometry: {width: 0, height: 1}", FormatYAML, "geometry"},
		{"unknown format", "{}", Format("ini"), "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "applet.toml")
	if err := os.WriteFile(path, []byte(`extensionId = "from-file"`), 0o644); err != nil {
		t.Fatal(err)
	}

	root, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if root.ExtensionID != "from-file" {
		t.Errorf("ExtensionID = %q", root.ExtensionID)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"a.json": FormatJSON,
		"a.JSON": FormatJSON,
		"a.toml": FormatTOML,
		"a.yaml": FormatYAML,
		"a.yml":  FormatYAML,
		"noext":  FormatYAML,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestFromArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantDev bool
		wantExt string
		wantErr bool
	}{
		{name: "no args", args: nil},
		{name: "dev", args: []string{"DEV"}, wantDev: true},
		{name: "dev lower case", args: []string{"dev"}, wantDev: true},
		{name: "dev with json", args: []string{"Dev", `{"extensionId":"e1"}`}, wantDev: true, wantExt: "e1"},
		{name: "dev ignores non-object", args: []string{"DEV", "extra"}, wantDev: true},
		{name: "json", args: []string{`{"extensionId":"e2"}`}, wantExt: "e2"},
		{name: "malformed json", args: []string{`{not json`}, wantErr: true},
		{name: "dev malformed json", args: []string{"DEV", `{broken`}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := FromArgs(tt.args)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("FromArgs() err = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromArgs() error = %v", err)
			}
			if root.Applet == nil || root.Defaults == nil {
				t.Error("FromArgs() result is not minimal")
			}
			if root.DevMode != tt.wantDev {
				t.Errorf("DevMode = %v, want %v", root.DevMode, tt.wantDev)
			}
			if root.ExtensionID != tt.wantExt {
				t.Errorf("ExtensionID = %q, want %q", root.ExtensionID, tt.wantExt)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}

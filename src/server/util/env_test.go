package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.local")
	content := "# comment\nMX44_HOST=10.0.0.7\nexport MX44_UTILS_CONFIG_DIR=\"/srv/mx44\"\nBROKEN\nMX44_LABEL='studio'\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	old := envLocalFile
	envLocalFile = path
	defer func() { envLocalFile = old }()

	tests := []struct {
		key      string
		expected string
	}{
		{"MX44_HOST", "10.0.0.7"},
		{"MX44_UTILS_CONFIG_DIR", "/srv/mx44"},
		{"MX44_LABEL", "studio"},
		{"BROKEN", ""},
		{"MISSING", ""},
	}
	for _, tt := range tests {
		if got := LoadEnvLocal(tt.key); got != tt.expected {
			t.Errorf("LoadEnvLocal(%q) = %q; want %q", tt.key, got, tt.expected)
		}
	}
}

func TestLoadEnvLocalMissingFile(t *testing.T) {
	old := envLocalFile
	envLocalFile = filepath.Join(t.TempDir(), "nope")
	defer func() { envLocalFile = old }()

	if got := LoadEnvLocal("MX44_HOST"); got != "" {
		t.Errorf("Expected empty value, got %q", got)
	}
}

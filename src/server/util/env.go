package util

import (
	"bufio"
	"os"
	"strings"
)

// envLocalFile is read relative to the working directory.
var envLocalFile = ".env.local"

// LoadEnvLocal returns the value of key from .env.local, or "" when the
// file or key is missing. Lines starting with '#' are skipped and values may
// be quoted.
func LoadEnvLocal(key string) string {
	file, err := os.Open(envLocalFile)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(k) == key {
			return strings.Trim(strings.TrimSpace(value), "\"'")
		}
	}
	return ""
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	maxConfigSize = 1 << 20
	maxEnvVarLen  = 10000
	maxPathLen    = 4096
)

// checkConfigPath accepts YAML files given by absolute path or by a
// relative path that stays under the working directory.
func checkConfigPath(path string) error {
	switch {
	case path == "":
		return fmt.Errorf("empty config path")
	case len(path) > maxPathLen:
		return fmt.Errorf("path too long: %d > %d", len(path), maxPathLen)
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("only YAML config files allowed: %s", path)
	}

	if !filepath.IsAbs(path) && !filepath.IsLocal(path) {
		return fmt.Errorf("path traversal not allowed: %s resolves outside working directory", path)
	}
	return nil
}

// safeReadFile reads a regular file of at most maxConfigSize bytes
func safeReadFile(path string) ([]byte, error) {
	if err := checkConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes > %d", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}
	return data, nil
}

// safeWriteFile writes data readable by the owner only, since configs can
// hold NATS credentials.
func safeWriteFile(path string, data []byte) error {
	if err := checkConfigPath(path); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}
	if len(data) > maxConfigSize {
		return fmt.Errorf("config data too large: %d bytes > %d", len(data), maxConfigSize)
	}
	return os.WriteFile(path, data, 0o600)
}

// validateEnvVar rejects override values that are oversized or carry NUL
// bytes.
func validateEnvVar(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("environment variable %s too long: %d > %d", key, len(value), maxEnvVarLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("null byte in environment variable %s", key)
	}
	return nil
}

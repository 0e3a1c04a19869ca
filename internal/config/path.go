package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfig names an explicit config file and takes precedence over the
// search path.
const EnvConfig = "CREAPER_CONFIG"

// ErrNoConfig is returned by ResolveConfigPath when no config file exists.
var ErrNoConfig = errors.New("no config file found")

// ResolveConfigPath returns the config file to load. It checks, in order:
// 1. $CREAPER_CONFIG if set
// 2. ~/.creaper/<file>
// 3. /etc/creaper/<file>
func ResolveConfigPath(file string) (string, error) {
	if env := os.Getenv(EnvConfig); env != "" {
		return env, nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ".creaper", file)
		if _, err := os.Stat(userPath); err == nil {
			return userPath, nil
		}
	}
	systemPath := filepath.Join("/etc/creaper", file)
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoConfig, file)
}

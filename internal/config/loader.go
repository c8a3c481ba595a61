package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/relayfetch/internal/proxyagent"
)

// DefaultProfileFile is the default profile file name.
const DefaultProfileFile = ".relayfetch"

// LoadProfileFile loads proxy profiles from a YAML file.
// If the file does not exist, it returns ErrProfileFileNotFound.
// Callers should handle this error appropriately based on whether the
// profile file path was explicitly specified by the user.
func LoadProfileFile(path string) (*ProfileFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided profile path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProfileFileNotFound
		}
		return nil, err
	}

	var pf ProfileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}

	// Initialize Profiles map if nil so lookups never panic
	if pf.Profiles == nil {
		pf.Profiles = make(map[string]proxyagent.Descriptor)
	}

	return &pf, nil
}

// FindProfileFile searches for the profile file in the following order:
// 1. If profilePath is specified, use it directly
// 2. Look for .relayfetch in the current directory
// 3. Look for .relayfetch in the user's home directory
//
// Returns the path to the profile file if found, or empty string if not.
func FindProfileFile(profilePath string) string {
	// If explicit path is provided, use it
	if profilePath != "" {
		if _, err := os.Stat(profilePath); err == nil {
			return profilePath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdProfile := filepath.Join(cwd, DefaultProfileFile)
		if _, err := os.Stat(cwdProfile); err == nil {
			return cwdProfile
		}
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homeProfile := filepath.Join(home, DefaultProfileFile)
		if _, err := os.Stat(homeProfile); err == nil {
			return homeProfile
		}
	}

	return ""
}

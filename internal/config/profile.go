package config

import (
	"fmt"

	"github.com/nao1215/relayfetch/internal/proxyagent"
)

// ProfileFile represents the structure of the .relayfetch profile file.
// Each profile is a named account with its own proxy settings; the fetch
// command selects one by name with --profile.
type ProfileFile struct {
	// Profiles maps profile names to their proxy descriptors.
	Profiles map[string]proxyagent.Descriptor `yaml:"profiles,omitempty"`
}

// Get returns the descriptor for the named profile.
// It returns ErrProfileNotFound (wrapped with the name) when the profile
// does not exist, so a typo in --profile fails loudly instead of silently
// fetching without a proxy.
func (pf *ProfileFile) Get(name string) (*proxyagent.Descriptor, error) {
	d, ok := pf.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	return &d, nil
}

// Names returns the profile names present in the file.
// Order is not specified; callers sort for display.
func (pf *ProfileFile) Names() []string {
	names := make([]string, 0, len(pf.Profiles))
	for name := range pf.Profiles {
		names = append(names, name)
	}
	return names
}

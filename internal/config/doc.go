// Package config provides configuration structures and utilities for
// relayfetch. It defines the runtime options for fetching, reporting, and
// history persistence, plus the profile file that maps named accounts to
// their proxy settings.
package config

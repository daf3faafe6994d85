// Package validation checks names that end up verbatim in iptables
// arguments.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxChainNameLen is the longest chain name the kernel accepts.
	MaxChainNameLen = 28

	// MaxZoneNameLen keeps the longest derived chain, zone_<name>_postrouting,
	// within MaxChainNameLen.
	MaxZoneNameLen = MaxChainNameLen - len("zone__postrouting")
)

var (
	// Valid interface name: alphanumeric, dash, underscore, dot (for VLANs), max 15 chars.
	// A trailing '+' is the iptables wildcard.
	interfaceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,15}\+?$`)

	// Valid identifier: alphanumeric, dash, underscore
	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// Dangerous characters that should never appear in identifiers
	dangerousChars = []string{";", "|", "&", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r"}
)

// ValidateInterfaceName validates a network interface name or wildcard.
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("interface name cannot be empty")
	}

	if len(strings.TrimSuffix(name, "+")) > 15 {
		return fmt.Errorf("interface name too long (max 15 characters): %s", name)
	}

	for _, char := range dangerousChars {
		if strings.Contains(name, char) {
			return fmt.Errorf("interface name contains dangerous character: %s", char)
		}
	}

	if !interfaceNameRegex.MatchString(name) {
		return fmt.Errorf("invalid interface name: %s (must be alphanumeric with -_.)", name)
	}
	return nil
}

// ValidateIdentifier validates a general identifier.
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !identifierRegex.MatchString(id) {
		return fmt.Errorf("invalid identifier: %s (must be alphanumeric with -_)", id)
	}
	return nil
}

// ValidateZoneName checks that every chain derived from a zone name is
// valid.
func ValidateZoneName(name string) error {
	if err := ValidateIdentifier(name); err != nil {
		return err
	}
	if len(name) > MaxZoneNameLen {
		return fmt.Errorf("zone name too long (max %d characters): %s", MaxZoneNameLen, name)
	}
	return nil
}

package access

import (
	"fmt"
	"strings"
)

// Mode is the global access policy.
type Mode string

const (
	// ModeAllowList denies everyone except subscribers with an allow-list entry.
	ModeAllowList Mode = "allowlist"
	// ModeDenyList allows everyone except subscribers with a deny-list entry.
	ModeDenyList Mode = "denylist"
)

// DefaultMode is the policy in force after initialization.
const DefaultMode = ModeDenyList

var ErrInvalidMode = fmt.Errorf("access mode must be either allowlist or denylist")

// ParseMode accepts the canonical names and the legacy whitelist/blocklist spellings.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allowlist", "allow-list", "whitelist":
		return ModeAllowList, nil
	case "denylist", "deny-list", "blocklist":
		return ModeDenyList, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Entry is a membership of a subscriber in one of the two lists.
type Entry struct {
	ID           int64
	Mode         Mode
	SubscriberID int64
}

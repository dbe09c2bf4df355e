// Package seedgen rolls randomizer seeds and assembles seeded URLs from a
// flag string.
package seedgen

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
)

// ErrNoFlags is returned when a randomizer URL carries no flag string.
var ErrNoFlags = errors.New("url has no flag string")

// Roll returns a fresh 32-bit seed rendered as eight hex digits.
func Roll() string {
	return fmt.Sprintf("%08x", rand.Uint32())
}

// FlagsFromURL extracts the randomizer host and flag string from a seed
// URL pasted by a user.
func FlagsFromURL(raw string) (site, flags string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse seed url: %w", err)
	}
	flags = u.Query().Get("f")
	if flags == "" {
		return "", "", ErrNoFlags
	}
	return u.Hostname(), flags, nil
}

// RolledURL builds a seeded randomizer link for the given site and flags,
// wrapped in angle brackets to suppress chat-platform link previews.
func RolledURL(site, flags string) string {
	return "<https://" + site + "/Randomize?s=" + Roll() + "&f=" + flags + ">"
}

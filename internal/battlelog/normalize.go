package battlelog

import (
	"regexp"
	"strings"
)

var nonIDChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// ToID turns a display name into the identifier form used by the game server:
// everything except ASCII letters and digits is dropped and the rest is lowercased.
func ToID(name string) string {
	return strings.ToLower(nonIDChars.ReplaceAllString(name, ""))
}

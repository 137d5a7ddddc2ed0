package battlelog

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var (
	// Matches the JSON-encoded name inside a `>player pN {...}` input log line.
	inputLogName = regexp.MustCompile(`name":"(?:[^"\\]|\\.)*",`)

	// Chat and timer lines are dropped from the battle log entirely.
	droppedLogPrefixes = []string{"|c|", "|c:|", "|inactive|"}

	// Lines that carry player names as plain text.
	nameLogPrefixes = []string{
		"|j|", "|J|",
		"|l|", "|L|",
		"|N|", "|n|",
		"|win|", "|tie|",
		"|-message|", "|raw|",
		"|player|",
	}
)

// player is one side of a battle as seen by a single record.
type player struct {
	name      string
	id        string
	pseudonym string

	// Matches `|pN: <name>` and `|pNa: <name>` position markers, nil when
	// the player has neither a name nor an id to look for.
	marker *regexp.Regexp
}

func newPlayer(side, name, pseudonym string) player {
	id := ToID(name)
	p := player{
		name:      name,
		id:        id,
		pseudonym: pseudonym,
	}
	alternatives := lo.Uniq(lo.FilterMap([]string{name, id}, func(s string, _ int) (string, bool) {
		return regexp.QuoteMeta(s), s != ""
	}))
	if len(alternatives) != 0 {
		p.marker = regexp.MustCompile(`(\|` + side + `[a-z]?: )(?:` + strings.Join(alternatives, "|") + `)`)
	}
	return p
}

// replaceMarkers rewrites the name following the player's position markers.
func (p player) replaceMarkers(entry string) string {
	if p.marker == nil {
		return entry
	}
	return p.marker.ReplaceAllString(entry, "${1}"+p.pseudonym)
}

func rewriteInputLog(entries []string, p1, p2 player) []string {
	return lo.FilterMap(entries, func(entry string, _ int) (string, bool) {
		switch {
		case strings.HasPrefix(entry, ">player p1"):
			return replaceInputLogName(entry, p1.pseudonym), true
		case strings.HasPrefix(entry, ">player p2"):
			return replaceInputLogName(entry, p2.pseudonym), true
		case strings.HasPrefix(entry, ">chat "):
			return "", false
		}
		return entry, true
	})
}

func replaceInputLogName(entry, pseudonym string) string {
	loc := inputLogName.FindStringIndex(entry)
	if loc == nil {
		return entry
	}
	return entry[:loc[0]] + `name":"` + pseudonym + `",` + entry[loc[1]:]
}

func rewriteLog(entries []string, p1, p2 player) []string {
	return lo.FilterMap(entries, func(entry string, _ int) (string, bool) {
		if hasAnyPrefix(entry, droppedLogPrefixes) {
			return "", false
		}
		if hasAnyPrefix(entry, nameLogPrefixes) {
			// Order matters when one name contains the other.
			return replaceAll(entry,
				p1.name, p1.pseudonym,
				p2.name, p2.pseudonym,
				p1.id, p1.pseudonym,
				p2.id, p2.pseudonym,
			), true
		}
		return p2.replaceMarkers(p1.replaceMarkers(entry)), true
	})
}

func hasAnyPrefix(s string, prefixes []string) bool {
	return lo.ContainsBy(prefixes, func(prefix string) bool {
		return strings.HasPrefix(s, prefix)
	})
}

// replaceAll applies old/new pairs one after another. Empty needles are skipped.
func replaceAll(s string, oldnew ...string) string {
	for i := 0; i+1 < len(oldnew); i += 2 {
		if oldnew[i] == "" {
			continue
		}
		s = strings.ReplaceAll(s, oldnew[i], oldnew[i+1])
	}
	return s
}

// leakedIdentifiers reports which player identifiers still occur in out.
func leakedIdentifiers(out string, p1, p2 player) []string {
	var leaked []string
	for _, needle := range []struct {
		label string
		text  string
	}{
		{"p1", p1.name},
		{"p1 id", p1.id},
		{"p2", p2.name},
		{"p2 id", p2.id},
	} {
		if needle.text != "" && strings.Contains(out, needle.text) {
			leaked = append(leaked, needle.label)
		}
	}
	return leaked
}

// Package battlelog strips player identities from battle log records before
// they are published. Players are replaced with pseudonyms that stay stable for
// the lifetime of one Registry, chat is removed, ratings and the room id are
// nulled and the timestamp is cut down to the hour.
package battlelog

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

const timestampRedaction = ":XX"

type Stats struct {
	Processed uint64
	Leaks     uint64
}

// Anonymizer rewrites one battle log at a time. It shares the registry and the
// sequence counter across calls, so it must not be used concurrently.
type Anonymizer struct {
	logger   *zap.Logger
	registry *Registry
	strict   bool

	seq   uint64
	leaks uint64
}

// NewAnonymizer returns an anonymizer drawing pseudonyms from registry.
// In strict mode a detected leak is returned as a *LeakError and the record is
// not emitted; otherwise the leak is only logged.
func NewAnonymizer(logger *zap.Logger, registry *Registry, strict bool) *Anonymizer {
	return &Anonymizer{
		logger:   logger,
		registry: registry,
		strict:   strict,
	}
}

// Anonymize returns the anonymized record together with its sequence number.
// Sequence numbers start at 1 and grow by one for every record returned.
func (a *Anonymizer) Anonymize(raw []byte) (string, uint64, error) {
	rec, err := parseRecord(raw)
	if err != nil {
		return "", 0, err
	}

	p1 := newPlayer("p1", rec.p1, a.registry.Pseudonym(rec.p1))
	p2 := newPlayer("p2", rec.p2, a.registry.Pseudonym(rec.p2))

	// A tie records an empty winner, which is registered like any other name.
	winner := a.registry.Pseudonym(rec.winner)

	p := &patch{doc: rec.doc}
	p.set("p1", p1.pseudonym)
	p.set("p2", p2.pseudonym)
	p.set("winner", winner)
	p.set("p1rating", nil)
	p.set("p2rating", nil)
	p.set("roomid", nil)
	p.set("timestamp", truncateTimestamp(rec.timestamp))
	p.setStrings("inputLog", rewriteInputLog(rec.inputLog, p1, p2))
	p.setStrings("log", rewriteLog(rec.log, p1, p2))
	if p.err != nil {
		return "", 0, errors.Wrap(p.err, "failed to rewrite battle log")
	}
	out := string(pretty.Ugly([]byte(p.doc)))

	if leaked := leakedIdentifiers(out, p1, p2); len(leaked) != 0 {
		a.leaks++
		a.logger.Warn(
			"Player identity survived anonymization.",
			zap.String("room_id", rec.roomID),
			zap.Strings("leaked", leaked),
			zap.Bool("strict", a.strict),
		)
		if a.strict {
			return "", 0, &LeakError{RoomID: rec.roomID, Identifiers: leaked}
		}
	}

	a.seq++
	return out, a.seq, nil
}

func (a *Anonymizer) Stats() Stats {
	return Stats{
		Processed: a.seq,
		Leaks:     a.leaks,
	}
}

// "Sat Nov 21 2020 17:05:04 GMT-0500" -> "Sat Nov 21 2020 17:XX"
func truncateTimestamp(ts string) string {
	hour, _, _ := strings.Cut(ts, ":")
	return hour + timestampRedaction
}

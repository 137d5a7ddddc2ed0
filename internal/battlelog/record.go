package battlelog

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// record holds the fields of a battle log the anonymizer reads.
// The document itself is kept as text and patched in place.
type record struct {
	doc string

	p1        string
	p2        string
	winner    string
	timestamp string
	roomID    string
	inputLog  []string
	log       []string
}

func parseRecord(raw []byte) (*record, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.Wrap(ErrParse, "invalid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, errors.Wrap(ErrSchema, "battle log is not an object")
	}

	rec := &record{
		doc:    string(raw),
		roomID: doc.Get("roomid").String(),
	}
	var err error
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"p1", &rec.p1},
		{"p2", &rec.p2},
		{"winner", &rec.winner},
		{"timestamp", &rec.timestamp},
	} {
		if *f.dst, err = stringField(doc, f.key); err != nil {
			return nil, err
		}
	}
	if rec.inputLog, err = stringsField(doc, "inputLog"); err != nil {
		return nil, err
	}
	if rec.log, err = stringsField(doc, "log"); err != nil {
		return nil, err
	}
	return rec, nil
}

func stringField(doc gjson.Result, key string) (string, error) {
	v := doc.Get(key)
	if v.Type != gjson.String {
		return "", errors.Wrapf(ErrSchema, "field %q is missing or not a string", key)
	}
	return v.Str, nil
}

func stringsField(doc gjson.Result, key string) ([]string, error) {
	v := doc.Get(key)
	if !v.IsArray() {
		return nil, errors.Wrapf(ErrSchema, "field %q is missing or not an array", key)
	}
	items := v.Array()
	out := make([]string, 0, len(items))
	for i, item := range items {
		if item.Type != gjson.String {
			return nil, errors.Wrapf(ErrSchema, "field %q: entry %d is not a string", key, i)
		}
		out = append(out, item.Str)
	}
	return out, nil
}

// patch applies sjson edits to a document, keeping the first error.
type patch struct {
	doc string
	err error
}

func (p *patch) set(key string, value interface{}) {
	if p.err != nil {
		return
	}
	p.doc, p.err = sjson.Set(p.doc, key, value)
	p.err = errors.Wrapf(p.err, "failed to set %q", key)
}

func (p *patch) setStrings(key string, values []string) {
	if p.err != nil {
		return
	}
	raw, err := encodeStrings(values)
	if err != nil {
		p.err = errors.Wrapf(err, "failed to encode %q", key)
		return
	}
	p.doc, p.err = sjson.SetRaw(p.doc, key, raw)
	p.err = errors.Wrapf(p.err, "failed to set %q", key)
}

// encodeStrings keeps <, > and & literal, the game server does not escape them.
func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(values); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

package trace

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/vinayprograms/agentmaker/internal/config"
)

// TruncationMarker is appended to strings cut for length.
const TruncationMarker = "...[truncated]"

// strictMaskedKeys hold file contents and patches on filesystem tool events.
var strictMaskedKeys = map[string]bool{
	"content": true,
	"patch":   true,
	"diff":    true,
}

// Policy decides what of a payload reaches the trace.
type Policy struct {
	Mode           string // off | standard | strict
	Placeholder    string
	MaxValueLength int
	SensitiveKeys  []string // matched case-insensitively as substrings of key names
}

// NewPolicy builds a policy from trace configuration.
func NewPolicy(cfg config.TraceConfig) Policy {
	keys := make([]string, 0, len(cfg.SensitiveKeys))
	for _, k := range cfg.SensitiveKeys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keys = append(keys, k)
		}
	}
	placeholder := cfg.Placeholder
	if placeholder == "" {
		placeholder = "***"
	}
	return Policy{
		Mode:           cfg.Privacy,
		Placeholder:    placeholder,
		MaxValueLength: cfg.MaxValueLength,
		SensitiveKeys:  keys,
	}
}

// Apply redacts an event's payload. Redacted stays set once true.
func (p Policy) Apply(e Event) Event {
	payload, changed := p.Redact(e.Kind, e.Class, e.Payload)
	e.Payload = payload
	e.Redacted = e.Redacted || changed
	return e
}

// Redact returns the payload as it may be persisted and whether anything was
// masked, omitted or truncated. Applying it to its own output is a no-op.
func (p Policy) Redact(kind, class string, payload interface{}) (interface{}, bool) {
	if p.Mode == config.PrivacyOff || payload == nil {
		return payload, false
	}

	value, ok := normalize(payload)
	if !ok {
		return map[string]interface{}{"unencodable": true}, true
	}

	if p.Mode == config.PrivacyStrict && kind == KindProviderResponse {
		omitted := map[string]interface{}{"omitted": true}
		return omitted, !reflect.DeepEqual(value, omitted)
	}

	return p.walk(value, class)
}

func (p Policy) walk(v interface{}, class string) (interface{}, bool) {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		changed := false
		for k, item := range val {
			if p.masks(k, class) {
				if s, ok := item.(string); !ok || s != p.Placeholder {
					changed = true
				}
				out[k] = p.Placeholder
				continue
			}
			r, c := p.walk(item, class)
			out[k] = r
			changed = changed || c
		}
		return out, changed
	case []interface{}:
		out := make([]interface{}, len(val))
		changed := false
		for i, item := range val {
			r, c := p.walk(item, class)
			out[i] = r
			changed = changed || c
		}
		return out, changed
	case string:
		return p.truncate(val)
	}
	return v, false
}

// masks reports whether a key's whole value is replaced by the placeholder.
func (p Policy) masks(key, class string) bool {
	lower := strings.ToLower(key)
	for _, s := range p.SensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return p.Mode == config.PrivacyStrict && class == "filesystem" && strictMaskedKeys[lower]
}

// truncate cuts s to MaxValueLength runes plus the marker. A string already
// in that shape is left alone.
func (p Policy) truncate(s string) (string, bool) {
	max := p.MaxValueLength
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s, false
	}
	if head, ok := strings.CutSuffix(s, TruncationMarker); ok && utf8.RuneCountInString(head) <= max {
		return s, false
	}
	r := []rune(s)
	return string(r[:max]) + TruncationMarker, true
}

// normalize converts a payload into generic JSON values so typed structs
// are walked like maps. A payload that cannot be encoded reports false and
// is never persisted.
func normalize(payload interface{}) (interface{}, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}

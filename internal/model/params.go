package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Params is the string-to-string parameter mapping attached to a test
// spec. It participates in the spec's natural key, so it is persisted
// as canonical JSON text: equal mappings always serialize to the same
// bytes regardless of insertion order.
type Params map[string]string

// Canonical serializes the mapping to canonical JSON: keys sorted by
// UTF-16 code units, NFC-normalized strings, no HTML escaping.
func (p Params) Canonical() (string, error) {
	return marshalCanonicalParams(p)
}

// ParseParams decodes the canonical JSON text produced by Canonical.
func ParseParams(text string) (Params, error) {
	if text == "" || text == "{}" {
		return Params{}, nil
	}
	var p Params
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, fmt.Errorf("parse parameters: %w", err)
	}
	return p, nil
}

// EncodeValue converts a field value to the representation bound as a
// SQL argument. Lookup and insert both encode through here, so a field
// value always matches the row it produced.
func EncodeValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return val, nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case Outcome:
		if !val.Valid() {
			return nil, fmt.Errorf("invalid outcome %d", int(val))
		}
		return int64(val), nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	case Params:
		return val.Canonical()
	case Entity:
		if val.RowID() == 0 {
			return nil, fmt.Errorf("unresolved %s reference", val.EntityKind())
		}
		return val.RowID(), nil
	default:
		return nil, fmt.Errorf("unsupported field value type %T", v)
	}
}

package sqlutil

import (
	"encoding/json"

	"github.com/sqlc-dev/pqtype"
)

// ToNullRawMessage marshals v into a nullable JSON column value. A nil v or
// a value that cannot be marshalled becomes NULL.
func ToNullRawMessage(v interface{}) pqtype.NullRawMessage {
	if v == nil {
		return pqtype.NullRawMessage{Valid: false}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{Valid: false}
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}
}

// FromNullRawMessage returns the JSON of a nullable column, or nil.
func FromNullRawMessage(val pqtype.NullRawMessage) json.RawMessage {
	if !val.Valid {
		return nil
	}
	return val.RawMessage
}

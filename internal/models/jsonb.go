package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonValue encodes an embedded list for a JSONB column. Nil lists are
// stored as an empty array so the column can stay NOT NULL.
func jsonValue(v any, empty bool) (driver.Value, error) {
	if empty {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

// jsonScan decodes a JSONB column into dst.
func jsonScan(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("jsonb: unsupported source type %T", src)
	}
}

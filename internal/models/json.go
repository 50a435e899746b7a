package models

import (
	"database/sql/driver"
	"encoding/json"
)

// JSON type for serialized object columns (stored as TEXT in SQLite)
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Counters tracks named progress counters for a job (rows processed,
// LLM calls made, images uploaded, ...)
type Counters map[string]int64

func (c Counters) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *Counters) Scan(value interface{}) error {
	if value == nil {
		*c = make(Counters)
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, c)
}

// Clone returns a copy safe to hand to concurrent readers.
func (c Counters) Clone() Counters {
	out := make(Counters, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// encodeAmounts converts a category mapping to JSON text for storage.
// A nil mapping encodes as the empty object so the column never holds
// NULL or other undecodable content.
func encodeAmounts(m map[string]float64) (string, error) {
	if m == nil {
		m = map[string]float64{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal amounts: %w", err)
	}
	return string(data), nil
}

// decodeAmounts parses a JSON text column back into a category mapping.
func decodeAmounts(data string) (map[string]float64, error) {
	m := map[string]float64{}
	if data == "" || data == "{}" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal amounts: %w", err)
	}
	return m, nil
}

// amountsColumn applies the store's decode policy to one mapping
// column. Lenient mode degrades an undecodable column to an empty
// mapping and logs a diagnostic; strict mode surfaces the error.
func (s *Store) amountsColumn(id int64, column, raw string) (map[string]float64, error) {
	m, err := decodeAmounts(raw)
	if err != nil {
		if s.strict {
			return nil, fmt.Errorf("decode %s for tax return %d: %w", column, id, err)
		}
		s.logger.Warn("discarding undecodable mapping column",
			"column", column,
			"tax_return_id", id,
			"error", err,
		)
		return map[string]float64{}, nil
	}
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

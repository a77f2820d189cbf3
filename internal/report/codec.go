package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
)

// EncodeJSON writes r as two-space indented JSON without HTML escaping.
func EncodeJSON(r models.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeJSON reads a report written by EncodeJSON.
func DecodeJSON(data []byte) (models.Report, error) {
	var r models.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return models.Report{}, fmt.Errorf("decode report: %w", err)
	}
	if r.Articles == nil {
		r.Articles = []models.Article{}
	}
	return r, nil
}

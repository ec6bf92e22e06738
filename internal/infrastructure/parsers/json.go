package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONParser parses entities from JSON format.
type JSONParser struct{}

// Parse reads JSON from the reader and returns parsed entities.
func (p *JSONParser) Parse(r io.Reader) ([]RawEntity, error) {
	var raws []RawEntity

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&raws); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	// Set line numbers (array index + 1, 1-indexed)
	for i := range raws {
		raws[i].LineNum = i + 1
	}

	return raws, nil
}

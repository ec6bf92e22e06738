package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVParser parses entities from CSV format.
type CSVParser struct{}

// Parse reads CSV from the reader and returns parsed entities.
// Expected columns: name, type, description, importance, timeline_anchor, attributes.
// Attributes are encoded as semicolon-separated key=value pairs.
func (p *CSVParser) Parse(r io.Reader) ([]RawEntity, error) {
	reader := csv.NewReader(r)

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[col] = i
	}

	if _, ok := colIndex["name"]; !ok {
		return nil, fmt.Errorf("missing required column: name")
	}

	return colIndex, nil
}

// readRecords reads all data rows and converts them to RawEntities.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]RawEntity, error) {
	var raws []RawEntity
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		raw, err := p.parseRecord(record, colIndex, lineNum)
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}

	return raws, nil
}

// parseRecord converts a CSV record to a RawEntity.
func (p *CSVParser) parseRecord(record []string, colIndex map[string]int, lineNum int) (RawEntity, error) {
	raw := RawEntity{
		Name:        getColumn(record, colIndex, "name"),
		Type:        getColumn(record, colIndex, "type"),
		Description: getColumn(record, colIndex, "description"),
		LineNum:     lineNum,
	}

	if s := getColumn(record, colIndex, "importance"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return RawEntity{}, fmt.Errorf("line %d: invalid importance value %q: %w", lineNum, s, err)
		}
		raw.Importance = &v
	}

	if s := getColumn(record, colIndex, "timeline_anchor"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return RawEntity{}, fmt.Errorf("line %d: invalid timeline_anchor value %q: %w", lineNum, s, err)
		}
		raw.TimelineAnchor = &v
	}

	if s := getColumn(record, colIndex, "attributes"); s != "" {
		attrs, err := parseAttributePairs(s)
		if err != nil {
			return RawEntity{}, fmt.Errorf("line %d: %w", lineNum, err)
		}
		raw.Attributes = attrs
	}

	return raw, nil
}

// parseAttributePairs decodes "key=value;key=value" attribute strings.
func parseAttributePairs(s string) (map[string]string, error) {
	attrs := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid attribute pair %q (expected key=value)", pair)
		}
		attrs[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return attrs, nil
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return record[idx]
	}
	return ""
}

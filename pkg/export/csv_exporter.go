package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders documents into CSV bytes. Every section contributes a
// heading record, its header row and data rows, then one record per summary line.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

func (e *CSVExporter) ContentType() string { return "text/csv" }

func (e *CSVExporter) Extension() string { return "csv" }

// Render produces CSV encoded bytes for the document.
func (e *CSVExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("csv requires at least one section")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	write := func(record ...string) error {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
		return nil
	}

	if doc.Title != "" {
		if err := write(doc.Title); err != nil {
			return nil, err
		}
	}
	for _, line := range doc.Subtitle {
		if err := write(line); err != nil {
			return nil, err
		}
	}
	for _, section := range doc.Sections {
		if len(section.Data.Headers) == 0 {
			return nil, fmt.Errorf("section %q has no headers", section.Heading)
		}
		if section.Heading != "" {
			if err := write(section.Heading); err != nil {
				return nil, err
			}
		}
		if err := write(section.Data.Headers...); err != nil {
			return nil, err
		}
		for _, row := range section.Data.Rows {
			record := make([]string, len(section.Data.Headers))
			for i, header := range section.Data.Headers {
				record[i] = row[header]
			}
			if err := write(record...); err != nil {
				return nil, err
			}
		}
		for _, line := range section.Summary {
			if err := write(line); err != nil {
				return nil, err
			}
		}
	}
	for _, line := range doc.Footer {
		if err := write(line); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

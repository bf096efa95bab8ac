package reportmanager

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are the arrival time formats report files have been seen to carry
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// reportFileParser holds information about a csv report file. Methods read typed columns
// from the current row. Errors while extracting data types are stored in an errors array
// which records the line number the error happened.
type reportFileParser struct {
	Filename       string
	line           int
	csvReader      *csv.Reader
	headers        []string
	currentRecords []string
	errors         []error
}

// makeReportFileParser creates a new reportFileParser from io.Reader and verifies the
// required columns are present
func makeReportFileParser(r io.Reader, filename string) (*reportFileParser, error) {
	csvReader := csv.NewReader(r)

	headers, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to load header in report file %s: %v", filename, err)
	}
	removeBOMIfPresent(headers)

	for _, required := range []string{"train_id", "route_id", "station_code", "scheduled_arrival"} {
		if indexOf(required, headers) < 0 {
			return nil, fmt.Errorf("report file %s is missing required column %s", filename, required)
		}
	}
	return &reportFileParser{
		Filename:       filename,
		line:           1,
		csvReader:      csvReader,
		headers:        headers,
		currentRecords: headers,
	}, nil
}

func removeBOMIfPresent(headers []string) {
	if len(headers) < 1 {
		return
	}
	firstHeader := headers[0]
	if len(firstHeader) < 1 {
		return
	}
	runes := []rune(firstHeader)
	if runes[0] == '\uFEFF' { //check for BOM
		headers[0] = string(runes[1:])
	}
}

// getString retrieves string
// returns empty string if missing
func (p *reportFileParser) getString(name string, optional bool) string {
	result, err := findValue(name, p.currentRecords, p.headers, optional)
	if err != nil {
		p.errors = append(p.errors, err)
	}
	if result == nil {
		return ""
	}
	return *result
}

// getIntPointer retrieves int pointer
// returns nil if missing
func (p *reportFileParser) getIntPointer(name string, optional bool) *int {
	value, err := findValue(name, p.currentRecords, p.headers, optional)
	if err != nil || value == nil {
		if err != nil {
			p.errors = append(p.errors, err)
		}
		return nil
	}
	if len(strings.TrimSpace(*value)) == 0 {
		if !optional {
			p.errors = append(p.errors, fmt.Errorf("missing required value in column %v", name))
		}
		return nil
	}
	result, err := strconv.Atoi(strings.TrimSpace(*value))
	if err != nil {
		p.errors = append(p.errors, csvError(name, err))
		return nil
	}
	return &result
}

// getBool retrieves a boolean column, accepting the true spellings report files use
// returns false if missing
func (p *reportFileParser) getBool(name string, optional bool) bool {
	value, err := findValue(name, p.currentRecords, p.headers, optional)
	if err != nil {
		p.errors = append(p.errors, err)
	}
	if value == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(*value)) {
	case "true", "t", "yes", "y", "1":
		return true
	default:
		return false
	}
}

// getTimestampPointer retrieves an arrival timestamp
// returns nil if missing and optional is true
func (p *reportFileParser) getTimestampPointer(name string, optional bool) *time.Time {
	value, err := findValue(name, p.currentRecords, p.headers, optional)
	if err != nil {
		p.errors = append(p.errors, err)
		return nil
	}
	if value == nil || len(strings.TrimSpace(*value)) == 0 {
		if !optional {
			p.errors = append(p.errors, fmt.Errorf("missing required value in column %v", name))
		}
		return nil
	}
	str := strings.TrimSpace(*value)
	for _, layout := range timestampLayouts {
		if result, parseErr := time.Parse(layout, str); parseErr == nil {
			return &result
		}
	}
	p.errors = append(p.errors, csvError(name, fmt.Errorf("unrecognized timestamp %q", str)))
	return nil
}

// getError retrieves the errors encountered while parsing the current csv line
func (p *reportFileParser) getError() error {
	if len(p.errors) > 0 {
		return fmt.Errorf("in file %v, line %v: %v", p.Filename, p.line, p.errors)
	}
	return nil
}

// clearLineErrors drops the current line's errors so one bad row does not halt the load
func (p *reportFileParser) clearLineErrors() {
	p.errors = nil
}

// nextLine moves csvReader one line forward
func (p *reportFileParser) nextLine() error {
	var err error
	p.currentRecords, err = p.csvReader.Read()
	p.line += 1
	return err
}

// find index of element that matches name string. returns -1 if not found
func indexOf(name string, elements []string) int {
	for i, value := range elements {
		if name == value {
			return i
		}
	}
	return -1
}

// findValue retrieves string value from csv records
// returns nil if record isn't present and optional is true
func findValue(name string, records []string, headers []string, optional bool) (*string, error) {
	index := indexOf(name, headers)
	if index < 0 {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to find header: %s", name)
	}
	if len(records) <= index {
		return nil, fmt.Errorf("records are too short to find header at %v named %s", index, name)
	}
	value := records[index]
	if len(value) == 0 && !optional {
		return nil, fmt.Errorf("missing required value in column %v", name)
	}
	return &value, nil
}

// csvError convenience method for formatting an error in a csv column
func csvError(name string, err error) error {
	return fmt.Errorf("unable to parse column %s, error: %v ", name, err)
}

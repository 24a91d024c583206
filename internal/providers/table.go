package providers

import (
	"encoding/csv"
	"strings"
)

// ParseDelimitedTable parses a delimited export whose first non-empty line is the
// header. The header picks the delimiter: pipe when it has more pipes than commas,
// comma otherwise. Each later line is zipped positionally with the header. Blank
// lines and lines that fail to parse or have the wrong field count are skipped.
func ParseDelimitedTable(raw string) []map[string]string {
	var header []string
	var rows []map[string]string
	sep := ','
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if header == nil {
			sep = sniffDelimiter(line)
		}
		fields, ok := parseDelimitedLine(line, sep)
		if !ok {
			continue
		}
		if header == nil {
			header = fields
			continue
		}
		if len(fields) != len(header) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			row[name] = fields[i]
		}
		rows = append(rows, row)
	}
	return rows
}

func sniffDelimiter(header string) rune {
	if strings.Count(header, "|") > strings.Count(header, ",") {
		return '|'
	}
	return ','
}

func parseDelimitedLine(line string, sep rune) ([]string, bool) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = sep == '|'
	fields, err := r.Read()
	if err != nil {
		return nil, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, true
}

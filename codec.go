package markerbed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header is the first line of every dataset file written by markerbed.
const Header = "shop_code,latitude,longitude,outlet name,brand,kecamatan,potensi"

// separator is the dataset field separator.
const separator = ','

// columnOrder is the positional layout of Header.
var columnOrder = []Field{
	FieldShopCode, FieldLatitude, FieldLongitude, FieldOutletName,
	FieldBrand, FieldKecamatan, FieldPotensi,
}

// headerNames maps accepted header spellings to canonical fields.
var headerNames = map[string]Field{
	"shop_code":   FieldShopCode,
	"outlet_code": FieldShopCode,
	"latitude":    FieldLatitude,
	"longitude":   FieldLongitude,
	"outlet name": FieldOutletName,
	"outlet_name": FieldOutletName,
	"brand":       FieldBrand,
	"kecamatan":   FieldKecamatan,
	"potensi":     FieldPotensi,
}

// SplitQuoted tokenizes one line. A double quote toggles the in-quotes state;
// a separator inside quotes is part of the field. Quote characters are kept in
// the returned fields; use unquote to strip them.
func SplitQuoted(line string, sep rune) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			field.WriteRune(r)
		case r == sep && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	return append(fields, field.String())
}

// unquote trims surrounding spaces and one pair of surrounding double quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// columnLayout returns, for each canonical field, its column index in header.
// Headers that name none of the canonical columns fall back to Header's order.
func columnLayout(header string) map[Field]int {
	layout := make(map[Field]int, len(columnOrder))
	for i, name := range SplitQuoted(header, separator) {
		f, ok := headerNames[strings.ToLower(unquote(name))]
		if !ok {
			continue
		}
		if _, dup := layout[f]; !dup {
			layout[f] = i
		}
	}
	if len(layout) == 0 {
		for i, f := range columnOrder {
			layout[f] = i
		}
	}
	return layout
}

// ParseDataset decodes a dataset file. The first line is the header and fixes
// the column order. Rows whose shop code, latitude and longitude are all empty
// are skipped; a row with a coordinate that is not a number returns a
// *RowError.
func ParseDataset(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		layout  map[Field]int
		records []Record
		line    int
	)
	for scanner.Scan() {
		line++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		if layout == nil {
			layout = columnLayout(strings.TrimPrefix(text, "\ufeff"))
			continue
		}

		rec, skip, err := decodeRow(text, layout)
		if err != nil {
			return nil, &RowError{Line: line, Reason: err.Error()}
		}
		if !skip {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return records, nil
}

// decodeRow turns one data line into a record. skip is true for rows with no
// key and no coordinates.
func decodeRow(text string, layout map[Field]int) (rec Record, skip bool, err error) {
	cols := SplitQuoted(text, separator)
	get := func(f Field) string {
		i, ok := layout[f]
		if !ok || i >= len(cols) {
			return ""
		}
		return unquote(cols[i])
	}

	code, latText, lngText := get(FieldShopCode), get(FieldLatitude), get(FieldLongitude)
	if code == "" && latText == "" && lngText == "" {
		return Record{}, true, nil
	}

	lat, err := parseStoredCoordinate(FieldLatitude, latText)
	if err != nil {
		return Record{}, false, err
	}
	lng, err := parseStoredCoordinate(FieldLongitude, lngText)
	if err != nil {
		return Record{}, false, err
	}

	return Record{
		ShopCode:   code,
		Latitude:   lat,
		Longitude:  lng,
		OutletName: get(FieldOutletName),
		Brand:      get(FieldBrand),
		Kecamatan:  get(FieldKecamatan),
		Potensi:    get(FieldPotensi),
	}, false, nil
}

// parseStoredCoordinate reads a coordinate column. Bounds are not enforced on
// stored rows; an empty column reads as zero.
func parseStoredCoordinate(f Field, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", f, s)
	}
	return v, nil
}

// MarshalDataset encodes records with the fixed Header. Text columns are always
// wrapped in double quotes; embedded quotes are not escaped.
func MarshalDataset(records []Record) []byte {
	var b bytes.Buffer
	b.Grow(len(Header) + 1 + len(records)*96)
	b.WriteString(Header)
	b.WriteByte('\n')
	for _, r := range records {
		b.WriteString(r.ShopCode)
		b.WriteByte(separator)
		b.WriteString(formatCoordinate(r.Latitude))
		b.WriteByte(separator)
		b.WriteString(formatCoordinate(r.Longitude))
		for _, s := range []string{r.OutletName, r.Brand, r.Kecamatan, r.Potensi} {
			b.WriteByte(separator)
			b.WriteByte('"')
			b.WriteString(s)
			b.WriteByte('"')
		}
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// formatCoordinate uses the shortest representation that parses back to v.
func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// countRows counts data rows without decoding coordinates, applying the same
// skip rule as ParseDataset. Clear uses it so a damaged file can still be
// reset.
func countRows(data []byte) int {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		layout map[Field]int
		n      int
	)
	for scanner.Scan() {
		text := strings.TrimSuffix(scanner.Text(), "\r")
		if layout == nil {
			layout = columnLayout(strings.TrimPrefix(text, "\ufeff"))
			continue
		}
		cols := SplitQuoted(text, separator)
		empty := true
		for _, f := range []Field{FieldShopCode, FieldLatitude, FieldLongitude} {
			if i, ok := layout[f]; ok && i < len(cols) && unquote(cols[i]) != "" {
				empty = false
				break
			}
		}
		if !empty {
			n++
		}
	}
	return n
}

package markerbed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// requiredFields are checked in this order; the first empty one is reported.
var requiredFields = []Field{FieldShopCode, FieldLatitude, FieldLongitude, FieldOutletName}

// textFields are written inside double quotes with no escaping.
var textFields = []Field{FieldOutletName, FieldBrand, FieldKecamatan, FieldPotensi}

// Characters the dataset file cannot carry. The key column is written bare,
// so it also excludes the separator.
const (
	keyReserved  = ",\"\r\n"
	textReserved = "\"\r\n"
)

// Validate checks required fields, coordinate bounds and characters the dataset
// file cannot hold, and returns the canonical record. The error is always a
// *ValidationError naming the first failing field.
func (c Candidate) Validate() (Record, error) {
	for _, f := range requiredFields {
		if strings.TrimSpace(c[f]) == "" {
			return Record{}, &ValidationError{Field: f, Reason: "required field is missing or empty"}
		}
	}

	lat, err := parseCoordinate(c[FieldLatitude], 90)
	if err != nil {
		return Record{}, &ValidationError{Field: FieldLatitude, Reason: err.Error()}
	}
	lng, err := parseCoordinate(c[FieldLongitude], 180)
	if err != nil {
		return Record{}, &ValidationError{Field: FieldLongitude, Reason: err.Error()}
	}
	if err := checkReserved(strings.TrimSpace(c[FieldShopCode]), keyReserved); err != nil {
		return Record{}, &ValidationError{Field: FieldShopCode, Reason: err.Error()}
	}
	for _, f := range textFields {
		if err := checkReserved(strings.TrimSpace(c[f]), textReserved); err != nil {
			return Record{}, &ValidationError{Field: f, Reason: err.Error()}
		}
	}

	return Record{
		ShopCode:   strings.TrimSpace(c[FieldShopCode]),
		Latitude:   lat,
		Longitude:  lng,
		OutletName: strings.TrimSpace(c[FieldOutletName]),
		Brand:      strings.TrimSpace(c[FieldBrand]),
		Kecamatan:  strings.TrimSpace(c[FieldKecamatan]),
		Potensi:    strings.TrimSpace(c[FieldPotensi]),
	}, nil
}

// parseCoordinate parses s as a finite number in the closed interval
// [-limit, limit].
func parseCoordinate(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	// ParseFloat accepts "NaN" and "Inf"; neither is a position.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("out of range [-%g, %g]: %g", limit, limit, v)
	}
	return v, nil
}

// checkReserved fails if s contains any of the characters in reserved.
func checkReserved(s, reserved string) error {
	if i := strings.IndexAny(s, reserved); i >= 0 {
		r, _ := utf8.DecodeRuneInString(s[i:])
		return fmt.Errorf("contains %q, which the dataset file cannot store", r)
	}
	return nil
}

// validateAll validates every candidate before anything is written. It returns
// the records in input order, or a *BatchError listing every failure.
func validateAll(candidates []Candidate) ([]Record, error) {
	records := make([]Record, 0, len(candidates))
	var failures []RecordError
	for i, c := range candidates {
		r, err := c.Validate()
		if err != nil {
			ve := err.(*ValidationError)
			failures = append(failures, RecordError{Index: i, Field: ve.Field, Error: ve.Reason})
			continue
		}
		records = append(records, r)
	}
	if len(failures) > 0 {
		return nil, &BatchError{
			Errors:     failures,
			ValidCount: len(records),
			TotalCount: len(candidates),
		}
	}
	return records, nil
}

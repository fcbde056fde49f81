package markerbed

import (
	"bytes"
	"fmt"
	"math"

	"github.com/andreiashu/markerbed/internal/fsutil"
)

// VerifyReport summarizes the integrity checks run by Verify.
type VerifyReport struct {
	Path            string
	Exists          bool
	Records         int
	DuplicateKeys   []string // shop codes held by more than one row
	EmptyKeys       int      // rows without a shop code
	OutOfBounds     []string // shop codes with coordinates outside the valid ranges
	Canonical       bool     // file is byte-identical to its re-encoding
	RoundTripStable bool     // decode(encode(records)) == records
}

// OK reports whether the dataset satisfies the invariants the store maintains.
// A file that is valid but not in canonical encoding (hand edited, for
// example) still passes.
func (r VerifyReport) OK() bool {
	return len(r.DuplicateKeys) == 0 && len(r.OutOfBounds) == 0 && r.RoundTripStable
}

// Verify loads the dataset at path and checks key uniqueness, coordinate
// bounds and the codec round trip. It returns an error only when the file
// cannot be read or decoded.
func Verify(path string) (VerifyReport, error) {
	report := VerifyReport{Path: path}

	data, exists, err := fsutil.ReadFileIfExists(path)
	if err != nil {
		return report, fmt.Errorf("reading dataset: %w", err)
	}
	report.Exists = exists
	if !exists {
		report.Canonical = true
		report.RoundTripStable = true
		return report, nil
	}

	records, err := ParseDataset(bytes.NewReader(data))
	if err != nil {
		return report, fmt.Errorf("decoding dataset: %w", err)
	}
	report.Records = len(records)

	counts := make(map[string]int, len(records))
	for _, r := range records {
		if r.ShopCode == "" {
			report.EmptyKeys++
		} else {
			counts[r.ShopCode]++
			if counts[r.ShopCode] == 2 {
				report.DuplicateKeys = append(report.DuplicateKeys, r.ShopCode)
			}
		}
		if !inBounds(r) {
			report.OutOfBounds = append(report.OutOfBounds, r.ShopCode)
		}
	}

	encoded := MarshalDataset(records)
	report.Canonical = bytes.Equal(encoded, data)

	again, err := ParseDataset(bytes.NewReader(encoded))
	report.RoundTripStable = err == nil && equalRecords(records, again)
	return report, nil
}

func inBounds(r Record) bool {
	return !math.IsNaN(r.Latitude) && !math.IsNaN(r.Longitude) &&
		r.Latitude >= -90 && r.Latitude <= 90 &&
		r.Longitude >= -180 && r.Longitude <= 180
}

func equalRecords(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

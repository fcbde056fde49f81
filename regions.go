package markerbed

import (
	"sort"
	"strings"
)

// AllRegions is the kecamatan filter value the map client uses for "every
// region". An empty filter means the same.
const AllRegions = "One Meter"

// Regions returns the distinct kecamatan values of records, sorted
// case-insensitively. Spellings differing only in case collapse to the first
// one seen; empty values are left out.
func Regions(records []Record) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		k := strings.TrimSpace(r.Kecamatan)
		if k == "" {
			continue
		}
		key := strings.ToLower(k)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, k)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return compareCaseInsensitive(out[i], out[j]) < 0
	})
	return out
}

// IsRegion reports whether name is AllRegions or a kecamatan present in
// records.
func IsRegion(records []Record, name string) bool {
	name = strings.TrimSpace(name)
	if name == AllRegions {
		return true
	}
	for _, r := range records {
		if strings.EqualFold(strings.TrimSpace(r.Kecamatan), name) {
			return true
		}
	}
	return false
}

// FilterByKecamatan returns the records in the given kecamatan, compared
// case-insensitively, preserving dataset order. An empty filter or AllRegions
// returns every record.
func FilterByKecamatan(records []Record, kecamatan string) []Record {
	kecamatan = strings.TrimSpace(kecamatan)
	if kecamatan == "" || kecamatan == AllRegions {
		return records
	}
	var out []Record
	for _, r := range records {
		if strings.EqualFold(strings.TrimSpace(r.Kecamatan), kecamatan) {
			out = append(out, r)
		}
	}
	return out
}

// compareCaseInsensitive compares two strings case-insensitively.
// Returns negative if a < b, positive if a > b, zero if equal.
func compareCaseInsensitive(a, b string) int {
	aLower := strings.ToLower(a)
	bLower := strings.ToLower(b)
	if aLower < bLower {
		return -1
	}
	if aLower > bLower {
		return 1
	}
	return 0
}

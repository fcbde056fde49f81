package markerbed

import (
	"strings"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// markerGeohashPrecision gives cells of roughly 150m x 150m, enough to group
// outlets on the same street for map clustering.
const markerGeohashPrecision = 7

// Marker is the map client's view of a record.
type Marker struct {
	Record
	Brands      []string `json:"brands"`
	IsPotential bool     `json:"isPotential"`
	Geohash     string   `json:"geohash"`
}

// NewMarker derives the map view of r. A brand column holding several
// comma-separated brands is split into Brands.
func NewMarker(r Record) Marker {
	return Marker{
		Record:      r,
		Brands:      splitBrands(r.Brand),
		IsPotential: r.IsPotential(),
		Geohash:     geohash.EncodeWithPrecision(r.Latitude, r.Longitude, markerGeohashPrecision),
	}
}

// Markers maps records to markers, preserving order.
func Markers(records []Record) []Marker {
	out := make([]Marker, len(records))
	for i, r := range records {
		out[i] = NewMarker(r)
	}
	return out
}

func splitBrands(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

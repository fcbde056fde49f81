// Package markerbed maintains a deduplicated point-of-interest dataset stored
// as a delimited text file.
//
// Records arrive from automation tools under loosely defined field names. They
// are normalized into a canonical shape, validated, merged into the dataset by
// shop code and committed with a backup of the previous file.
//
// Example:
//
//	s, err := markerbed.Open("./data/markers.csv", markerbed.WithBackupDir("./data/backups"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := s.Upsert(ctx, map[string]any{
//	    "Outlet Code":  "250429104405",
//	    "latitude":     "-6.111696",
//	    "longitude":    "106.914977",
//	    "Nama Pemilik": "Ibu Tati",
//	})
package markerbed

import "strings"

// Default values for optional fields.
const (
	DefaultBrand     = "Other"
	DefaultKecamatan = "Unknown"
)

// potensiFlag is the potensi value that marks a record as having sales potential.
const potensiFlag = "potensi"

// Record is a canonical, validated point of interest.
type Record struct {
	ShopCode   string  `json:"shop_code"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	OutletName string  `json:"outlet_name"`
	Brand      string  `json:"brand"`
	Kecamatan  string  `json:"kecamatan"`
	Potensi    string  `json:"potensi"`
}

// IsPotential reports whether the potensi column flags the outlet as having
// sales potential.
func (r Record) IsPotential() bool {
	return strings.EqualFold(strings.TrimSpace(r.Potensi), potensiFlag)
}

// Operation names a mutating store operation. It is used in backup file names,
// log fields and metric labels.
type Operation string

const (
	OpUpsert  Operation = "upsert"
	OpBatch   Operation = "batch"
	OpReplace Operation = "replace"
	OpClear   Operation = "clear"
)

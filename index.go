package markerbed

import (
	"math"
	"sort"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// s2CellLevel sets the granularity of the spatial index. Level 12 cells are
// roughly 2km across at the equator, about the spacing of outlets in a dense
// kecamatan, so a lookup touches few cells and few records per cell.
const s2CellLevel = 12

// earthRadiusMeters converts between s1 angles and ground distance.
const earthRadiusMeters = 6371008.8

// maxCoveringRadiusMeters bounds the radius served by a cell covering. Wider
// searches scan every record instead of enumerating thousands of cells.
const maxCoveringRadiusMeters = 25000

// Index answers spatial queries over a snapshot of records. It is immutable
// and safe for concurrent use.
type Index struct {
	records []Record
	cells   map[s2.CellID][]int
}

// Neighbor is a record with its distance from a query point.
type Neighbor struct {
	Record         Record  `json:"record"`
	DistanceMeters float64 `json:"distanceMeters"`
}

// NewIndex builds a cell index over records. Records with invalid coordinates
// are kept in the snapshot but not indexed.
func NewIndex(records []Record) *Index {
	ix := &Index{
		records: records,
		cells:   make(map[s2.CellID][]int),
	}
	for i, r := range records {
		ll := s2.LatLngFromDegrees(r.Latitude, r.Longitude)
		if !ll.IsValid() {
			continue
		}
		cell := s2.CellIDFromLatLng(ll).Parent(s2CellLevel)
		ix.cells[cell] = append(ix.cells[cell], i)
	}
	return ix
}

// Len returns the number of records in the snapshot.
func (ix *Index) Len() int { return len(ix.records) }

// Records returns the snapshot the index was built from.
func (ix *Index) Records() []Record { return ix.records }

// cellAndNeighbors returns the given cell plus the eight cells sharing an
// edge or a vertex with it. Near cube-face corners there are only seven.
func cellAndNeighbors(cell s2.CellID) []s2.CellID {
	cells := make([]s2.CellID, 0, 9)
	cells = append(cells, cell)

	seen := map[s2.CellID]bool{cell: true}
	for _, n := range cell.AllNeighbors(cell.Level()) {
		if !seen[n] {
			cells = append(cells, n)
			seen[n] = true
		}
	}
	return cells
}

// Nearest returns the record closest to lat/lng. The best record in the query
// cell and its neighbors bounds the answer; a covering of that radius then
// finds anything closer just outside the ring. Empty rings fall back to a full
// scan.
func (ix *Index) Nearest(lat, lng float64) (Neighbor, bool) {
	query, ok := queryPoint(lat, lng)
	if !ok || len(ix.cells) == 0 {
		return Neighbor{}, false
	}

	var candidates []int
	for _, cell := range cellAndNeighbors(s2.CellIDFromLatLng(query).Parent(s2CellLevel)) {
		candidates = append(candidates, ix.cells[cell]...)
	}
	if len(candidates) == 0 {
		candidates = ix.allIndexed()
	}

	ranked := ix.rank(query, candidates, math.Inf(1))
	if len(ranked) == 0 {
		return Neighbor{}, false
	}
	best := ranked[0]
	if closer := ix.Within(lat, lng, best.DistanceMeters); len(closer) > 0 && closer[0].DistanceMeters <= best.DistanceMeters {
		best = closer[0]
	}
	return best, true
}

// Within returns the records no farther than radiusMeters from lat/lng,
// closest first.
func (ix *Index) Within(lat, lng, radiusMeters float64) []Neighbor {
	query, ok := queryPoint(lat, lng)
	if !ok || radiusMeters < 0 || math.IsNaN(radiusMeters) {
		return nil
	}

	var candidates []int
	if radiusMeters > maxCoveringRadiusMeters {
		candidates = ix.allIndexed()
	} else {
		angle := s1.Angle(radiusMeters / earthRadiusMeters)
		region := s2.CapFromCenterAngle(s2.PointFromLatLng(query), angle)
		coverer := &s2.RegionCoverer{MinLevel: s2CellLevel, MaxLevel: s2CellLevel, MaxCells: 64}
		for _, cell := range coverer.Covering(region) {
			candidates = append(candidates, ix.cells[cell]...)
		}
	}
	return ix.rank(query, candidates, radiusMeters)
}

// rank measures candidates against query, drops those beyond maxMeters and
// sorts by distance, then shop code for determinism.
func (ix *Index) rank(query s2.LatLng, candidates []int, maxMeters float64) []Neighbor {
	seen := make(map[int]bool, len(candidates))
	out := make([]Neighbor, 0, len(candidates))
	for _, i := range candidates {
		if seen[i] {
			continue
		}
		seen[i] = true
		r := ix.records[i]
		d := float64(query.Distance(s2.LatLngFromDegrees(r.Latitude, r.Longitude))) * earthRadiusMeters
		if d > maxMeters {
			continue
		}
		out = append(out, Neighbor{Record: r, DistanceMeters: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].Record.ShopCode < out[j].Record.ShopCode
	})
	return out
}

func (ix *Index) allIndexed() []int {
	all := make([]int, 0, len(ix.records))
	for _, idx := range ix.cells {
		all = append(all, idx...)
	}
	return all
}

// queryPoint rejects NaN, infinities and out-of-range coordinates, which would
// otherwise produce undefined cell ids.
func queryPoint(lat, lng float64) (s2.LatLng, bool) {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return s2.LatLng{}, false
	}
	ll := s2.LatLngFromDegrees(lat, lng)
	return ll, ll.IsValid()
}

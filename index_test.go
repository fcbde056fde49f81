package markerbed

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/s2"
)

// Outlets around North Jakarta plus one far away.
var jakartaRecords = []Record{
	{ShopCode: "CLC-1", Latitude: -6.111696, Longitude: 106.914977, Kecamatan: "Cilincing"},
	{ShopCode: "CLC-2", Latitude: -6.115, Longitude: 106.92, Kecamatan: "Cilincing"},
	{ShopCode: "KOJ-1", Latitude: -6.118, Longitude: 106.905, Kecamatan: "Koja"},
	{ShopCode: "BDG-1", Latitude: -6.914744, Longitude: 107.60981, Kecamatan: "Bandung"},
}

func TestIndexNearest(t *testing.T) {
	ix := NewIndex(jakartaRecords)
	if ix.Len() != 4 {
		t.Fatalf("Len() = %d", ix.Len())
	}

	tests := []struct {
		name     string
		lat, lng float64
		want     string
	}{
		{"exact", -6.111696, 106.914977, "CLC-1"},
		{"nearby", -6.1151, 106.9199, "CLC-2"},
		{"west", -6.118, 106.9, "KOJ-1"},
		{"far from everything uses full scan", -7.5, 110.4, "BDG-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := ix.Nearest(tt.lat, tt.lng)
			if !ok {
				t.Fatalf("Nearest(%v, %v) found nothing", tt.lat, tt.lng)
			}
			if n.Record.ShopCode != tt.want {
				t.Errorf("Nearest(%v, %v) = %s, want %s", tt.lat, tt.lng, n.Record.ShopCode, tt.want)
			}
		})
	}
}

func TestIndexNearestMatchesFullScan(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	jitter := func() float64 { return (rng.Float64() - 0.5) * 0.1 }

	for trial := 0; trial < 2000; trial++ {
		records := make([]Record, 6)
		for i := range records {
			records[i] = Record{ShopCode: fmt.Sprintf("S%d", i), Latitude: -6.15 + jitter(), Longitude: 106.9 + jitter()}
		}
		lat, lng := -6.15+jitter(), 106.9+jitter()

		query := s2.LatLngFromDegrees(lat, lng)
		want := math.Inf(1)
		for _, r := range records {
			d := float64(query.Distance(s2.LatLngFromDegrees(r.Latitude, r.Longitude))) * earthRadiusMeters
			want = math.Min(want, d)
		}

		got, ok := NewIndex(records).Nearest(lat, lng)
		if !ok {
			t.Fatalf("trial %d: Nearest found nothing", trial)
		}
		if got.DistanceMeters != want {
			t.Fatalf("trial %d: Nearest(%v, %v) = %s at %.0fm, closest is %.0fm",
				trial, lat, lng, got.Record.ShopCode, got.DistanceMeters, want)
		}
	}
}

func TestIndexNearestInvalid(t *testing.T) {
	ix := NewIndex(jakartaRecords)
	for _, q := range [][2]float64{{math.NaN(), 0}, {0, math.Inf(1)}, {91, 0}} {
		if _, ok := ix.Nearest(q[0], q[1]); ok {
			t.Errorf("Nearest(%v, %v) should find nothing", q[0], q[1])
		}
	}
	if _, ok := NewIndex(nil).Nearest(0, 0); ok {
		t.Errorf("Nearest on an empty index should find nothing")
	}
}

func TestIndexWithin(t *testing.T) {
	ix := NewIndex(jakartaRecords)

	got := ix.Within(-6.111696, 106.914977, 2000)
	codes := make([]string, len(got))
	for i, n := range got {
		codes[i] = n.Record.ShopCode
	}
	want := []string{"CLC-1", "CLC-2", "KOJ-1"}
	if len(codes) != len(want) {
		t.Fatalf("Within(2km) = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("Within(2km)[%d] = %s, want %s", i, codes[i], want[i])
		}
	}
	if got[0].DistanceMeters != 0 {
		t.Errorf("distance to self = %v", got[0].DistanceMeters)
	}
	// CLC-1 to CLC-2 is about 700m.
	if d := got[1].DistanceMeters; d < 600 || d > 800 {
		t.Errorf("CLC-1 to CLC-2 = %.0fm, want about 700m", d)
	}

	if got := ix.Within(-6.111696, 106.914977, 500); len(got) != 1 {
		t.Errorf("Within(500m) returned %d records, want 1", len(got))
	}
	// Beyond the covering limit the index scans everything.
	if got := ix.Within(-6.111696, 106.914977, 200000); len(got) != 4 {
		t.Errorf("Within(200km) returned %d records, want 4", len(got))
	}
	if got := ix.Within(-6.111696, 106.914977, -1); got != nil {
		t.Errorf("Within(negative radius) = %v", got)
	}
}

func TestIndexSkipsInvalidCoordinates(t *testing.T) {
	records := append([]Record{{ShopCode: "BAD", Latitude: 95, Longitude: 0}}, jakartaRecords...)
	ix := NewIndex(records)
	if ix.Len() != 5 {
		t.Errorf("Len() = %d, want 5", ix.Len())
	}
	if got := ix.Within(0, 0, 200000); len(got) != 0 {
		t.Errorf("Within() returned unindexed records: %v", got)
	}
}

func TestCellAndNeighbors(t *testing.T) {
	ix := NewIndex(jakartaRecords[:1])
	for cell := range ix.cells {
		cells := cellAndNeighbors(cell)
		if len(cells) != 9 {
			t.Errorf("cellAndNeighbors() returned %d cells, want 9", len(cells))
		}
		if cells[0] != cell {
			t.Errorf("cellAndNeighbors()[0] should be the cell itself")
		}
	}
}

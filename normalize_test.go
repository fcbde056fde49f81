package markerbed

import (
	"encoding/json"
	"testing"
)

func TestNormalizeAliases(t *testing.T) {
	n := NewNormalizer(0, DefaultKecamatan)

	tests := []struct {
		name    string
		payload map[string]any
		want    Candidate
	}{
		{
			name: "canonical keys",
			payload: map[string]any{
				"shop_code": "A1", "latitude": "-6.2", "longitude": "106.8",
				"outlet_name": "Toko A", "brand": "Aqua", "kecamatan": "Koja", "potensi": "potensi",
			},
			want: Candidate{
				FieldShopCode: "A1", FieldLatitude: "-6.2", FieldLongitude: "106.8",
				FieldOutletName: "Toko A", FieldBrand: "Aqua", FieldKecamatan: "Koja", FieldPotensi: "potensi",
			},
		},
		{
			name: "automation aliases",
			payload: map[string]any{
				"Outlet Code": "250429104405", "Latitude": "-6.111696", "lng": "106.914977",
				"Nama Pemilik": "Ibu Tati",
			},
			want: Candidate{
				FieldShopCode: "250429104405", FieldLatitude: "-6.111696", FieldLongitude: "106.914977",
				FieldOutletName: "Ibu Tati", FieldBrand: "Other", FieldKecamatan: "Unknown", FieldPotensi: "",
			},
		},
		{
			name: "case variants",
			payload: map[string]any{
				"SHOP_CODE": "B2", "LAT": "1", "LONGITUDE": "2", "Outlet Name": "Toko B", "KECAMATAN": "Cilincing",
			},
			want: Candidate{
				FieldShopCode: "B2", FieldLatitude: "1", FieldLongitude: "2",
				FieldOutletName: "Toko B", FieldBrand: "Other", FieldKecamatan: "Cilincing", FieldPotensi: "",
			},
		},
		{
			name: "first non-empty alias wins",
			payload: map[string]any{
				"shop_code": "  ", "outlet_code": "C3", "latitude": "", "lat": "3", "longitude": "4",
				"outlet_name": "Toko C", "nama_pemilik": "ignored",
			},
			want: Candidate{
				FieldShopCode: "C3", FieldLatitude: "3", FieldLongitude: "4",
				FieldOutletName: "Toko C", FieldBrand: "Other", FieldKecamatan: "Unknown", FieldPotensi: "",
			},
		},
		{
			name:    "missing required fields stay empty",
			payload: map[string]any{"brand": "Aqua"},
			want: Candidate{
				FieldShopCode: "", FieldLatitude: "", FieldLongitude: "",
				FieldOutletName: "", FieldBrand: "Aqua", FieldKecamatan: "Unknown", FieldPotensi: "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.payload)
			if len(got) != len(tt.want) {
				t.Fatalf("Normalize() returned %d fields, want %d: %v", len(got), len(tt.want), got)
			}
			for f, want := range tt.want {
				if got[f] != want {
					t.Errorf("Normalize()[%s] = %q, want %q", f, got[f], want)
				}
			}
		})
	}
}

func TestNormalizeEnvelopes(t *testing.T) {
	n := NewNormalizer(0, DefaultKecamatan)
	inner := map[string]any{"shop_code": "E1", "lat": 1.5, "lng": 2.5, "outlet_name": "Toko E"}

	payloads := map[string]map[string]any{
		"flat":          inner,
		"data":          {"data": inner},
		"record.fields": {"record": map[string]any{"fields": inner}},
		"record":        {"record": inner},
		"fields":        {"fields": inner},
		"nested data":   {"data": map[string]any{"data": inner}},
	}
	for name, p := range payloads {
		t.Run(name, func(t *testing.T) {
			got := n.Normalize(p)
			if got[FieldShopCode] != "E1" || got[FieldLatitude] != "1.5" || got[FieldLongitude] != "2.5" {
				t.Errorf("Normalize(%s) = %v", name, got)
			}
		})
	}
}

func TestNormalizeValueFormatting(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"  padded  ", "padded"},
		{float64(-6.111696), "-6.111696"},
		{float64(106), "106"},
		{json.Number("106.914977"), "106.914977"},
		{42, "42"},
		{int64(7), "7"},
		{true, "true"},
		{[]any{"Aqua", " Le Minerale ", ""}, "Aqua, Le Minerale"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDefaultKecamatan(t *testing.T) {
	got := NewNormalizer(0, "").Normalize(map[string]any{"shop_code": "A"})
	if got[FieldKecamatan] != "" {
		t.Errorf("kecamatan = %q, want empty", got[FieldKecamatan])
	}
	got = NewNormalizer(0, "Koja").Normalize(map[string]any{"shop_code": "A"})
	if got[FieldKecamatan] != "Koja" {
		t.Errorf("kecamatan = %q, want Koja", got[FieldKecamatan])
	}
}

func TestNormalizeFuzzy(t *testing.T) {
	payload := map[string]any{"shop_cdoe": "F1", "latitdue": "1", "longitude": "2", "outlet_nme": "Toko F"}

	strict := NewNormalizer(0, DefaultKecamatan).Normalize(payload)
	if strict[FieldShopCode] != "" || strict[FieldOutletName] != "" {
		t.Errorf("fuzzy matching disabled but got %v", strict)
	}

	fuzzy := NewNormalizer(2, DefaultKecamatan).Normalize(payload)
	if fuzzy[FieldShopCode] != "F1" || fuzzy[FieldLatitude] != "1" || fuzzy[FieldOutletName] != "Toko F" {
		t.Errorf("fuzzy Normalize() = %v", fuzzy)
	}
}

func TestFuzzyMatchFunction(t *testing.T) {
	tests := []struct {
		key, alias string
		maxDist    int
		want       bool
	}{
		{"brand", "brand", 0, true},
		{"brnad", "brand", 2, true},
		{"brnad", "brand", 1, false},
		{"BRAND", "brand", 0, true},
		{"lat", "lng", 2, false}, // short keys only match exactly
		{"Lat", "lat", 2, true},
		{"kecamatan", "region", 2, false},
	}
	for _, tt := range tests {
		if got := fuzzyMatch(tt.key, tt.alias, tt.maxDist); got != tt.want {
			t.Errorf("fuzzyMatch(%q, %q, %d) = %v, want %v", tt.key, tt.alias, tt.maxDist, got, tt.want)
		}
	}
}

func TestNewNormalizerClampsDistance(t *testing.T) {
	if n := NewNormalizer(-1, ""); n.fuzzyDistance != 0 {
		t.Errorf("fuzzyDistance = %d, want 0", n.fuzzyDistance)
	}
	if n := NewNormalizer(10, ""); n.fuzzyDistance != maxFuzzyDistance {
		t.Errorf("fuzzyDistance = %d, want %d", n.fuzzyDistance, maxFuzzyDistance)
	}
}

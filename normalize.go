package markerbed

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Field is a canonical record field name.
type Field string

const (
	FieldShopCode   Field = "shop_code"
	FieldLatitude   Field = "latitude"
	FieldLongitude  Field = "longitude"
	FieldOutletName Field = "outlet_name"
	FieldBrand      Field = "brand"
	FieldKecamatan  Field = "kecamatan"
	FieldPotensi    Field = "potensi"
)

// fieldAlias lists the source keys accepted for a canonical field, in
// priority order.
type fieldAlias struct {
	field   Field
	aliases []string
}

// fieldAliases is the alias table used by every Normalizer. The order of the
// aliases decides which key wins when a payload carries several of them.
var fieldAliases = []fieldAlias{
	{FieldShopCode, []string{"shop_code", "outlet_code", "Outlet Code", "Shop Code", "shopCode", "outletCode"}},
	{FieldLatitude, []string{"latitude", "lat", "Latitude", "Lat"}},
	{FieldLongitude, []string{"longitude", "lng", "lon", "long", "Longitude"}},
	{FieldOutletName, []string{"outlet_name", "outlet name", "nama_pemilik", "Nama Pemilik", "outletName", "name"}},
	{FieldBrand, []string{"brand", "Brand", "brands"}},
	{FieldKecamatan, []string{"kecamatan", "Kecamatan", "region", "district"}},
	{FieldPotensi, []string{"potensi", "Potensi", "potential"}},
}

// maxFuzzyDistance caps the edit distance for alias matching. Larger values
// start matching unrelated keys.
const maxFuzzyDistance = 2

// Candidate is a normalized but not yet validated record.
type Candidate map[Field]string

// Normalizer maps heterogeneous payloads onto canonical candidates.
// A Normalizer is immutable and safe for concurrent use.
type Normalizer struct {
	defaults      map[Field]string
	fuzzyDistance int
}

// NewNormalizer creates a Normalizer. fuzzyDistance of 0 disables fuzzy alias
// matching; defaultKecamatan is used when a payload has no region.
func NewNormalizer(fuzzyDistance int, defaultKecamatan string) *Normalizer {
	if fuzzyDistance < 0 {
		fuzzyDistance = 0
	}
	if fuzzyDistance > maxFuzzyDistance {
		fuzzyDistance = maxFuzzyDistance
	}
	return &Normalizer{
		defaults: map[Field]string{
			FieldBrand:     DefaultBrand,
			FieldKecamatan: defaultKecamatan,
			FieldPotensi:   "",
		},
		fuzzyDistance: fuzzyDistance,
	}
}

// Normalize resolves every canonical field of payload. Unmatched optional
// fields get their default; unmatched required fields stay empty and are
// reported by Validate.
func (n *Normalizer) Normalize(payload map[string]any) Candidate {
	fields := Fields(payload)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := make(Candidate, len(fieldAliases))
	for _, fa := range fieldAliases {
		v, ok := n.lookup(fields, keys, fa.aliases)
		if !ok {
			v = n.defaults[fa.field]
		}
		c[fa.field] = v
	}
	return c
}

// lookup returns the first non-empty value matching one of aliases. Exact keys
// are tried first, then case variants, then fuzzy matches.
func (n *Normalizer) lookup(fields map[string]any, keys []string, aliases []string) (string, bool) {
	for _, alias := range aliases {
		if v := formatValue(fields[alias]); v != "" {
			return v, true
		}
	}
	for _, alias := range aliases {
		for _, k := range keys {
			if !strings.EqualFold(k, alias) {
				continue
			}
			if v := formatValue(fields[k]); v != "" {
				return v, true
			}
		}
	}
	if n.fuzzyDistance == 0 {
		return "", false
	}
	for _, alias := range aliases {
		for _, k := range keys {
			if !fuzzyMatch(k, alias, n.fuzzyDistance) {
				continue
			}
			if v := formatValue(fields[k]); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// fuzzyMatch compares two keys case-insensitively with a Levenshtein distance
// tolerance. Keys shorter than four characters only match exactly.
func fuzzyMatch(key, alias string, maxDist int) bool {
	if len(key) < 4 || len(alias) < 4 {
		return strings.EqualFold(key, alias)
	}
	return levenshtein.ComputeDistance(strings.ToLower(key), strings.ToLower(alias)) <= maxDist
}

// Fields unwraps the envelopes automation tools put around a record:
// {"data": {...}}, {"record": {"fields": {...}}} and {"fields": {...}}.
// Flat payloads are returned unchanged.
func Fields(payload map[string]any) map[string]any {
	if inner, ok := payload["data"].(map[string]any); ok {
		return Fields(inner)
	}
	if rec, ok := payload["record"].(map[string]any); ok {
		if inner, ok := rec["fields"].(map[string]any); ok {
			return inner
		}
		return rec
	}
	if inner, ok := payload["fields"].(map[string]any); ok {
		return inner
	}
	return payload
}

// formatValue renders a payload value as trimmed text.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		// Multi-select cells arrive as arrays; join them the way the map
		// client splits brands.
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := formatValue(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

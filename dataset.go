package markerbed

// dataset is the working copy of the records held by the operation that owns
// the file token.
type dataset struct {
	records []Record
	byKey   map[string]int // shop code -> first index holding it
}

func newDataset(records []Record) *dataset {
	d := &dataset{
		records: records,
		byKey:   make(map[string]int, len(records)),
	}
	for i, r := range records {
		if r.ShopCode == "" {
			continue
		}
		if _, ok := d.byKey[r.ShopCode]; !ok {
			d.byKey[r.ShopCode] = i
		}
	}
	return d
}

// upsert replaces the record with the same shop code in place or appends r.
// An empty shop code never matches an existing record.
func (d *dataset) upsert(r Record) (added bool) {
	if r.ShopCode != "" {
		if i, ok := d.byKey[r.ShopCode]; ok {
			d.records[i] = r
			return false
		}
		d.byKey[r.ShopCode] = len(d.records)
	}
	d.records = append(d.records, r)
	return true
}

func (d *dataset) len() int { return len(d.records) }

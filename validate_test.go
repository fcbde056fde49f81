package markerbed

import (
	"errors"
	"testing"
)

func validCandidate() Candidate {
	return Candidate{
		FieldShopCode: "A1", FieldLatitude: "-6.2", FieldLongitude: "106.8",
		FieldOutletName: "Toko A", FieldBrand: "Aqua", FieldKecamatan: "Koja", FieldPotensi: "",
	}
}

func TestValidateAccepts(t *testing.T) {
	c := validCandidate()
	c[FieldShopCode] = "  A1 "
	c[FieldOutletName] = " Toko A"

	r, err := c.Validate()
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	want := Record{ShopCode: "A1", Latitude: -6.2, Longitude: 106.8, OutletName: "Toko A", Brand: "Aqua", Kecamatan: "Koja"}
	if r != want {
		t.Errorf("Validate() = %+v, want %+v", r, want)
	}
}

func TestValidateBoundsAreClosed(t *testing.T) {
	tests := []struct {
		lat, lng string
		ok       bool
	}{
		{"90", "180", true},
		{"-90", "-180", true},
		{"0", "0", true},
		{"90.0000001", "0", false},
		{"-90.0000001", "0", false},
		{"0", "180.0000001", false},
		{"0", "-180.0000001", false},
	}
	for _, tt := range tests {
		c := validCandidate()
		c[FieldLatitude], c[FieldLongitude] = tt.lat, tt.lng
		_, err := c.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("Validate(lat=%s, lng=%s) error = %v, want ok=%v", tt.lat, tt.lng, err, tt.ok)
		}
	}
}

func TestValidateFirstFailureWins(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(Candidate)
		field Field
	}{
		{"missing shop code", func(c Candidate) { c[FieldShopCode] = "" }, FieldShopCode},
		{"blank shop code", func(c Candidate) { c[FieldShopCode] = "   " }, FieldShopCode},
		{"missing latitude", func(c Candidate) { c[FieldLatitude] = "" }, FieldLatitude},
		{"missing longitude", func(c Candidate) { c[FieldLongitude] = "" }, FieldLongitude},
		{"missing outlet name", func(c Candidate) { c[FieldOutletName] = "" }, FieldOutletName},
		{"missing outlet name before bad latitude", func(c Candidate) {
			c[FieldOutletName] = ""
			c[FieldLatitude] = "north"
		}, FieldOutletName},
		{"non-numeric latitude", func(c Candidate) { c[FieldLatitude] = "north" }, FieldLatitude},
		{"latitude before longitude", func(c Candidate) {
			c[FieldLatitude] = "100"
			c[FieldLongitude] = "200"
		}, FieldLatitude},
		{"NaN longitude", func(c Candidate) { c[FieldLongitude] = "NaN" }, FieldLongitude},
		{"infinite latitude", func(c Candidate) { c[FieldLatitude] = "Inf" }, FieldLatitude},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.edit(c)
			_, err := c.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Validate() failed on %s, want %s (%v)", ve.Field, tt.field, err)
			}
		})
	}
}

func TestValidateRejectsUnstorableCharacters(t *testing.T) {
	tests := []struct {
		field Field
		value string
		ok    bool
	}{
		{FieldShopCode, "A,1", false},
		{FieldShopCode, `A"1`, false},
		{FieldShopCode, "A\n1", false},
		{FieldShopCode, "A\r1", false},
		{FieldShopCode, "A-1 B", true},
		{FieldOutletName, "Toko\nBudi", false},
		{FieldOutletName, "Toko\r\nBudi", false},
		{FieldOutletName, `Toko "Budi"`, false},
		{FieldOutletName, "Toko, Budi", true},
		{FieldBrand, "Aqua\n", true}, // trailing whitespace is trimmed first
		{FieldBrand, "Aqua\nLe Minerale", false},
		{FieldKecamatan, `Koja"`, false},
		{FieldPotensi, "potensi\rx", false},
	}
	for _, tt := range tests {
		c := validCandidate()
		c[tt.field] = tt.value
		_, err := c.Validate()
		if tt.ok {
			if err != nil {
				t.Errorf("Validate(%s=%q) error = %v", tt.field, tt.value, err)
			}
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tt.field {
			t.Errorf("Validate(%s=%q) error = %v, want a *ValidationError on %s", tt.field, tt.value, err, tt.field)
		}
	}
}

func TestValidateAll(t *testing.T) {
	bad := validCandidate()
	bad[FieldLongitude] = "181"
	missing := validCandidate()
	delete(missing, FieldShopCode)

	records, err := validateAll([]Candidate{validCandidate(), bad, validCandidate(), missing})
	if records != nil {
		t.Errorf("validateAll() returned records despite failures: %v", records)
	}
	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("validateAll() error = %v, want *BatchError", err)
	}
	if be.ValidCount != 2 || be.TotalCount != 4 || len(be.Errors) != 2 {
		t.Fatalf("BatchError = %+v", be)
	}
	if be.Errors[0].Index != 1 || be.Errors[0].Field != FieldLongitude {
		t.Errorf("first failure = %+v", be.Errors[0])
	}
	if be.Errors[1].Index != 3 || be.Errors[1].Field != FieldShopCode {
		t.Errorf("second failure = %+v", be.Errors[1])
	}

	records, err = validateAll([]Candidate{validCandidate(), validCandidate()})
	if err != nil || len(records) != 2 {
		t.Errorf("validateAll() = %v, %v", records, err)
	}
}

package language

import "testing"

func TestTableShape(t *testing.T) {
	all := All()
	if len(all) != 14 {
		t.Fatalf("expected 14 languages, got %d", len(all))
	}
	if Base().Code != "en" || Base().DisplayName != "English" {
		t.Fatalf("unexpected base %+v", Base())
	}
	seen := map[string]bool{}
	for _, e := range all {
		if seen[e.Code] {
			t.Fatalf("duplicate code %q", e.Code)
		}
		seen[e.Code] = true
		if e.ApproxSizeBytes <= 0 {
			t.Fatalf("missing size for %q", e.Code)
		}
	}
	all[0].Code = "xx"
	if All()[0].Code != "en" {
		t.Fatal("All must return a copy")
	}
}

func TestLookups(t *testing.T) {
	tests := []struct {
		input    string
		wantCode string
		ok       bool
	}{
		{"fr", "fr", true},
		{" FR ", "fr", true},
		{"French", "fr", true},
		{"japanese", "jap", true},
		{"jap", "jap", true},
		{"pt", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		e, ok := Resolve(tt.input)
		if ok != tt.ok || e.Code != tt.wantCode {
			t.Errorf("Resolve(%q) = %q,%v want %q,%v", tt.input, e.Code, ok, tt.wantCode, tt.ok)
		}
	}
	if Name("de") != "German" || Name("pt") != "PT" {
		t.Fatalf("unexpected names %q %q", Name("de"), Name("pt"))
	}
	if !IsBase("EN") || IsBase("fr") {
		t.Fatal("IsBase misclassified")
	}
}

func TestISO2AndNativeName(t *testing.T) {
	tests := []struct {
		code string
		iso  string
	}{
		{"en", "en"},
		{"jap", "ja"},
		{"zh", "zh"},
		{"uk", "uk"},
		{"xx", ""},
	}
	for _, tt := range tests {
		if got := ISO2(tt.code); got != tt.iso {
			t.Errorf("ISO2(%q) = %q, want %q", tt.code, got, tt.iso)
		}
	}
	if got := NativeName("fr"); got != "français" {
		t.Fatalf("NativeName(fr) = %q", got)
	}
	if got := NativeName("xx"); got != "XX" {
		t.Fatalf("NativeName(xx) = %q", got)
	}
}

func TestSizeLabel(t *testing.T) {
	if got := SizeLabel("en"); got != "300 MB" {
		t.Fatalf("SizeLabel(en) = %q", got)
	}
	if got := SizeLabel("de"); got != "1.6 GB" {
		t.Fatalf("SizeLabel(de) = %q", got)
	}
	if got := SizeLabel("xx"); got != "" {
		t.Fatalf("SizeLabel(xx) = %q", got)
	}
}

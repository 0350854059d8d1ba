package transcript

import "testing"

func TestResolveClass(t *testing.T) {
	tests := []struct {
		in      string
		labeled bool
		want    string
		ok      bool
	}{
		{"12A3", false, "12A3", true},
		{"12a3", false, "12A3", true},
		{"10A1", false, "10A1", true},
		{"9C12", false, "9C12", true},
		{"l2A3", false, "12A3", true},
		{"Lớp: 12Al", true, "12A1", true},
		{"12AI", false, "12A1", true},
		{"12A|", true, "12A1", true},
		{"12All", true, "12A11", true},
		{"IIA2", true, "11A2", true},
		{"lA1", true, "1A1", true},
		{"lo8", false, "", false},
		{"Mail", false, "", false},
		{"1041", true, "10A1", true},
		{"1041", false, "", false},
		{"1081", true, "10B1", true},
		{"12A3 2020-2021", true, "12A3", true},
		{"Năm học 2020", false, "", false},
		{"12A", false, "", false},
		{"", true, "", false},
	}
	for _, tt := range tests {
		got, ok := ResolveClass(tt.in, tt.labeled)
		if ok != tt.ok {
			t.Errorf("ResolveClass(%q, %v) ok = %v, want %v", tt.in, tt.labeled, ok, tt.ok)
			continue
		}
		if ok && got.String() != tt.want {
			t.Errorf("ResolveClass(%q, %v) = %s, want %s", tt.in, tt.labeled, got, tt.want)
		}
	}
}

func TestClassCodeRoundTrip(t *testing.T) {
	for _, s := range []string{"12A3", "1B1", "10C12", "09D01"} {
		code, ok := ParseClassCode(s)
		if !ok {
			t.Fatalf("ParseClassCode(%q) failed", s)
		}
		if code.String() != s {
			t.Errorf("round trip %q -> %q", s, code.String())
		}
		again, ok := ResolveClass(code.String(), false)
		if !ok || again != code {
			t.Errorf("ResolveClass(%q) = %+v, %v; want %+v", s, again, ok, code)
		}
	}
}

func TestParseClassCodeRejectsDigitSections(t *testing.T) {
	if _, ok := ParseClassCode("1041"); ok {
		t.Fatal("ParseClassCode should only accept rendered codes")
	}
}

package transcript

import (
	"testing"

	"github.com/joseph-ayodele/transcript-reader/constants"
)

func defaultVocabulary() *Vocabulary {
	return NewVocabulary(DefaultVocabulary(), DefaultAliases(), DefaultMatchThreshold)
}

func TestVocabularyMatch(t *testing.T) {
	v := defaultVocabulary()
	tests := []struct {
		in   string
		want constants.Subject
	}{
		{"Toán học", constants.Math},
		{"TOÁN", constants.Math},
		{"Toan hoc", constants.Math},
		{"Ngữ văn", constants.Literature},
		{"Vật lý", constants.Physics},
		{"Vat li:", constants.Physics},
		{"Lịch sử", constants.History},
		{"Giáo dục công dân", constants.CivicEducation},
		{"Tiếng Anh", constants.ForeignLanguage},
		{"Hoá học", constants.Chemistry},
		{"Mathematics", constants.Math},
	}
	for _, tt := range tests {
		got := v.Match(tt.in)
		if got.Subject != tt.want {
			t.Errorf("Match(%q) = %+v, want %s", tt.in, got, tt.want)
		}
		if got.Raw != "" {
			t.Errorf("Match(%q) kept raw text %q for a recognized subject", tt.in, got.Raw)
		}
	}
}

func TestVocabularyAliases(t *testing.T) {
	v := defaultVocabulary()
	for alias, want := range DefaultAliases() {
		for i := 0; i < 3; i++ {
			if got := v.Match(alias); got.Subject != want {
				t.Fatalf("Match(%q) = %+v, want %s", alias, got, want)
			}
		}
	}
}

func TestVocabularyUnrecognized(t *testing.T) {
	v := defaultVocabulary()
	for _, in := range []string{"Kỹ năng sống", "Nguyen Van A", "Xyz abc", ""} {
		got := v.Match(in)
		if got.Recognized() {
			t.Errorf("Match(%q) = %s, want unrecognized", in, got.Subject)
		}
		if got.Raw != in {
			t.Errorf("Match(%q).Raw = %q", in, got.Raw)
		}
	}
}

func TestVocabularyShortLabelsMatchExactly(t *testing.T) {
	v := defaultVocabulary()
	for in, want := range map[string]constants.Subject{
		"Văn": constants.Literature,
		"VAN": constants.Literature,
		"Hóa": constants.Chemistry,
		"Sử":  constants.History,
	} {
		if got := v.Match(in); got.Subject != want {
			t.Errorf("Match(%q) = %+v, want %s", in, got, want)
		}
	}
	for _, in := range []string{"Ban", "Vat", "Hoc", "Sin"} {
		if got := v.Match(in); got.Recognized() {
			t.Errorf("Match(%q) = %s, want unrecognized", in, got.Subject)
		}
	}
}

func TestVocabularyThresholdBoundary(t *testing.T) {
	label := "abcdefghijklmnopqrst" // 20 runes
	v := NewVocabulary([]VocabularyEntry{{Subject: constants.Music, Labels: []string{label}}}, nil, 0.65)

	// 7 substitutions: similarity exactly 0.65
	if got := v.Match("zzzzzzzhijklmnopqrst"); got.Subject != constants.Music {
		t.Fatalf("similarity at threshold should match, got %+v", got)
	}
	// 8 substitutions: 0.60
	if got := v.Match("zzzzzzzzijklmnopqrst"); got.Recognized() {
		t.Fatalf("similarity below threshold should not match, got %+v", got)
	}
}

func TestVocabularyTieBreak(t *testing.T) {
	entries := []VocabularyEntry{
		{Subject: constants.Physics, Labels: []string{"abcd"}},
		{Subject: constants.Chemistry, Labels: []string{"abce"}},
	}
	v := NewVocabulary(entries, nil, 0.65)
	if got := v.Match("abcf"); got.Subject != constants.Chemistry {
		t.Fatalf("tie should go to the smallest subject name, got %+v", got)
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("Toán", "toan"); got != 1 {
		t.Fatalf("Similarity folded = %v, want 1", got)
	}
	if got := Similarity("", ""); got != 1 {
		t.Fatalf("Similarity empty = %v, want 1", got)
	}
	if got := Similarity("abcd", "abcf"); got != 0.75 {
		t.Fatalf("Similarity = %v, want 0.75", got)
	}
}

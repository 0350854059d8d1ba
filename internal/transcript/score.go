package transcript

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ScoreKind tells numeric grades from pass/fail markers.
type ScoreKind int

const (
	Numeric ScoreKind = iota + 1
	Qualitative
)

// Verdict is the outcome carried by a qualitative score.
type Verdict int

const (
	Pass Verdict = iota + 1
	Fail
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// MaxTenths is 10.0 expressed in tenths.
const MaxTenths = 100

// ScoreValue is one grade. Numeric grades are held in tenths (0..100) so
// every stored value has exactly one decimal.
type ScoreValue struct {
	Kind    ScoreKind
	Tenths  int
	Verdict Verdict
	Marker  string
}

// NumericScore clamps nothing; callers pass values already checked to be in
// range.
func NumericScore(tenths int) ScoreValue {
	return ScoreValue{Kind: Numeric, Tenths: tenths}
}

func QualitativeScore(v Verdict, marker string) ScoreValue {
	return ScoreValue{Kind: Qualitative, Verdict: v, Marker: marker}
}

// Value is the numeric grade, or NaN for qualitative scores.
func (s ScoreValue) Value() float64 {
	if s.Kind != Numeric {
		return math.NaN()
	}
	return float64(s.Tenths) / 10
}

func (s ScoreValue) String() string {
	if s.Kind == Qualitative {
		return s.Marker
	}
	return fmt.Sprintf("%d.%d", s.Tenths/10, s.Tenths%10)
}

func (s ScoreValue) MarshalJSON() ([]byte, error) {
	if s.Kind == Qualitative {
		return json.Marshal(s.Marker)
	}
	return []byte(s.String()), nil
}

func (s *ScoreValue) UnmarshalJSON(data []byte) error {
	var marker string
	if err := json.Unmarshal(data, &marker); err == nil {
		v, ok := anyQualitative[strings.ToLower(marker)]
		if !ok {
			return fmt.Errorf("unknown qualitative marker %q", marker)
		}
		*s = QualitativeScore(v.verdict, v.marker)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("score must be a number or a marker: %w", err)
	}
	tenths, ok := toTenths(f)
	if !ok {
		return fmt.Errorf("score %v out of range", f)
	}
	*s = NumericScore(tenths)
	return nil
}

var (
	reDecimalScore = regexp.MustCompile(`^\d+[.,]\d+$`)
	reIntegerScore = regexp.MustCompile(`^\d{1,2}$`)
)

// parseNumericScore reads the printed forms of a grade: decimals with a dot
// or comma, whole numbers up to 10, and two-digit numbers above 10 where the
// OCR dropped the decimal point ("83" is 8.3).
func parseNumericScore(tok string) (ScoreValue, bool) {
	switch {
	case reDecimalScore.MatchString(tok):
		tenths, ok := decimalTenths(tok)
		if !ok {
			return ScoreValue{}, false
		}
		return NumericScore(tenths), true
	case reIntegerScore.MatchString(tok):
		n, err := strconv.Atoi(tok)
		if err != nil {
			return ScoreValue{}, false
		}
		if n <= 10 {
			return NumericScore(n * 10), true
		}
		return NumericScore(n), true
	}
	return ScoreValue{}, false
}

// decimalTenths rounds a printed decimal half up to one digit using the
// digits themselves, so "8.15" becomes 8.2 without float error.
func decimalTenths(tok string) (int, bool) {
	sep := strings.IndexAny(tok, ".,")
	whole, err := strconv.Atoi(tok[:sep])
	if err != nil || whole > 10 {
		return 0, false
	}
	frac := tok[sep+1:]
	if whole == 10 && strings.Trim(frac, "0") != "" {
		return 0, false
	}
	tenths := whole*10 + int(frac[0]-'0')
	if len(frac) > 1 && frac[1] >= '5' {
		tenths++
	}
	return tenths, tenths <= MaxTenths
}

// toTenths rounds half up to one decimal and rejects values outside [0, 10].
func toTenths(f float64) (int, bool) {
	if math.IsNaN(f) || f < 0 || f > 10 {
		return 0, false
	}
	return int(math.Round(f * 10)), true
}

// Package transcript turns noisy OCR text fragments from a scanned academic
// transcript into a structured record: student name, class code and
// per-subject term scores.
//
// Everything in this package is pure and synchronous. A Parser is immutable
// once built and may be shared between goroutines.
package transcript

// Fragment is one line of OCR output together with the engine's confidence
// in [0, 1].
type Fragment struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// FragmentKind is the tag given to a fragment by the classifier. Each
// fragment gets exactly one kind.
type FragmentKind int

const (
	KindNoise FragmentKind = iota
	KindName
	KindClass
	KindAverage
	KindScore
	KindSubject
)

func (k FragmentKind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindClass:
		return "class"
	case KindAverage:
		return "average"
	case KindScore:
		return "score"
	case KindSubject:
		return "subject"
	default:
		return "noise"
	}
}

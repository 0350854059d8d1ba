package transcript

import (
	"log/slog"
	"math"

	"github.com/joseph-ayodele/transcript-reader/constants"
)

// Parser turns OCR fragments into a TranscriptRecord. It never fails: what
// cannot be recovered is left empty.
type Parser struct {
	cfg         Config
	vocab       *Vocabulary
	markers     markerSet
	qualitative map[constants.Subject]struct{}
	logger      *slog.Logger
}

// NewParser validates cfg and builds a parser that owns a copy of it.
func NewParser(cfg Config, logger *slog.Logger) (*Parser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.clone()

	qualitative := make(map[constants.Subject]struct{}, len(cfg.QualitativeSubjects))
	for _, s := range cfg.QualitativeSubjects {
		qualitative[s] = struct{}{}
	}

	return &Parser{
		cfg:         cfg,
		vocab:       NewVocabulary(cfg.Vocabulary, cfg.Aliases, cfg.MatchThreshold),
		markers:     markersFor(cfg.Language),
		qualitative: qualitative,
		logger:      logger,
	}, nil
}

// Config returns a copy of the parser's configuration.
func (p *Parser) Config() Config {
	return p.cfg.clone()
}

func (p *Parser) Vocabulary() *Vocabulary {
	return p.vocab
}

// ClassifyScore reads fragment as a grade using this parser's language.
func (p *Parser) ClassifyScore(fragment string) (ScoreValue, bool) {
	return p.markers.ClassifyScore(Normalize(fragment).Corrected)
}

// Parse runs the whole structuring pass over fragments in the order given.
func (p *Parser) Parse(fragments []Fragment) TranscriptRecord {
	g := newGrouper(p.qualitative)
	kept := 0
	p.each(fragments, func(tok CanonicalToken) {
		kept++
		g.feed(p.classify(tok.Corrected))
	})

	name, class, records := g.finish()
	rec := Assemble(name, class, records)
	p.logger.Debug("transcript parsed",
		"fragments", len(fragments),
		"kept", kept,
		"subjects", len(rec.Subjects),
		"has_name", name != nil,
		"has_class", class != nil,
	)
	return rec
}

// TraceStep shows how one kept fragment was read.
type TraceStep struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Kind      string `json:"kind"`
	State     string `json:"state"`
}

// Trace parses fragments like Parse and also reports, per kept fragment, its
// tag and the grouper state after it.
func (p *Parser) Trace(fragments []Fragment) (TranscriptRecord, []TraceStep) {
	g := newGrouper(p.qualitative)
	var steps []TraceStep
	p.each(fragments, func(tok CanonicalToken) {
		c := p.classify(tok.Corrected)
		g.feed(c)
		steps = append(steps, TraceStep{
			Original:  tok.Original,
			Corrected: tok.Corrected,
			Kind:      c.kind.String(),
			State:     g.state.String(),
		})
	})
	name, class, records := g.finish()
	return Assemble(name, class, records), steps
}

// each applies the confidence filter and normalization.
func (p *Parser) each(fragments []Fragment, fn func(CanonicalToken)) {
	for _, f := range fragments {
		if math.IsNaN(f.Confidence) || f.Confidence < p.cfg.ConfidenceThreshold {
			continue
		}
		tok := Normalize(f.Text)
		if tok.Corrected == "" {
			continue
		}
		fn(tok)
	}
}

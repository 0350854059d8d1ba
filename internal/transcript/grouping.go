package transcript

import (
	"github.com/joseph-ayodele/transcript-reader/constants"
)

// State is the position of the line grouper within a transcript.
type State int

const (
	StateSeekingHeader State = iota
	StateInHeader
	StateSeekingSubject
	StateInSubjectScores
	StateDone
)

func (s State) String() string {
	switch s {
	case StateSeekingHeader:
		return "seeking_header"
	case StateInHeader:
		return "in_header"
	case StateSeekingSubject:
		return "seeking_subject"
	case StateInSubjectScores:
		return "in_subject_scores"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// grouper folds classified fragments into subject records in one pass.
type grouper struct {
	qualitative map[constants.Subject]struct{}

	state State
	// state to return to once the name after an empty name marker is read
	resume State

	name         *string
	noise        []string
	classPending bool
	labeled      *classHit
	bare         *classHit

	current    *SubjectRecord
	records    []SubjectRecord
	hasAverage bool
}

func newGrouper(qualitative map[constants.Subject]struct{}) *grouper {
	return &grouper{qualitative: qualitative, state: StateSeekingHeader}
}

func (g *grouper) feed(c classified) {
	if g.state == StateInHeader {
		g.state = g.resume
		if c.kind == KindNoise {
			if name := cleanName(c.text); name != "" {
				g.setName(name)
				return
			}
		}
	}

	if g.classPending {
		g.classPending = false
		if c.kind == KindNoise || (c.kind == KindClass && c.class != nil && !c.class.labeled) {
			if code, rank, ok := findClassCode(c.text, true); ok {
				g.offerClass(&classHit{code: code, rank: rank, labeled: true})
				return
			}
		}
	}

	switch c.kind {
	case KindName:
		g.takeClass(c)
		if g.name != nil {
			return
		}
		if c.name != "" {
			g.setName(c.name)
			return
		}
		g.resume = g.afterHeader()
		g.state = StateInHeader

	case KindClass:
		g.takeClass(c)

	case KindAverage:
		g.open(c.subject)
		g.addScores(c.scores)

	case KindSubject:
		// the same label read twice before any grade is one label
		if g.current != nil && g.current.Subject == c.subject && g.current.ScoreCount() == 0 {
			g.addScores(c.scores)
			return
		}
		g.open(c.subject)
		g.addScores(c.scores)

	case KindScore:
		if g.state != StateInSubjectScores {
			return
		}
		g.addScores(c.scores)

	case KindNoise:
		g.noise = append(g.noise, c.text)
		if g.state == StateSeekingSubject && !c.heading && looksLikeLabel(c.text) {
			g.open(Unrecognized(c.text))
		}
	}
}

func (g *grouper) afterHeader() State {
	if g.state == StateSeekingHeader || g.state == StateInHeader {
		return StateSeekingSubject
	}
	return g.state
}

func (g *grouper) setName(name string) {
	if g.name != nil {
		return
	}
	g.name = &name
	g.state = g.afterHeader()
}

func (g *grouper) takeClass(c classified) {
	if c.class != nil {
		g.offerClass(c.class)
	} else if c.classPending {
		g.classPending = true
	}
}

// offerClass keeps the best labeled and the best bare candidate. Later
// candidates win only with a strictly higher rank.
func (g *grouper) offerClass(hit *classHit) {
	slot := &g.bare
	if hit.labeled {
		slot = &g.labeled
	}
	if *slot == nil || hit.rank > (*slot).rank {
		*slot = hit
	}
}

func (g *grouper) open(subject SubjectName) {
	g.flush()
	g.current = &SubjectRecord{Subject: subject}
	g.state = StateInSubjectScores
}

func (g *grouper) addScores(scores []ScoreValue) {
	for _, s := range scores {
		if g.current == nil {
			return
		}
		if s.Kind == Qualitative && !g.acceptsQualitative(g.current.Subject) {
			continue
		}
		g.current.addScore(s)
		if g.current.ScoreCount() == 3 {
			g.flush()
			g.state = StateSeekingSubject
		}
	}
}

func (g *grouper) acceptsQualitative(name SubjectName) bool {
	if !name.Recognized() {
		return false
	}
	_, ok := g.qualitative[name.Subject]
	return ok
}

// flush closes the open record. Records without grades are dropped, and
// only the first average row is kept.
func (g *grouper) flush() {
	if g.current == nil {
		return
	}
	r := *g.current
	g.current = nil
	if r.ScoreCount() == 0 {
		return
	}
	if r.Subject.Subject == constants.Average {
		if g.hasAverage {
			return
		}
		g.hasAverage = true
	}
	g.records = append(g.records, r)
}

// finish ends the document and returns what was found.
func (g *grouper) finish() (*string, *ClassCode, []SubjectRecord) {
	g.flush()
	g.state = StateDone

	name := g.name
	if name == nil {
		name = g.fallbackName()
	}

	var class *ClassCode
	switch {
	case g.labeled != nil:
		class = &g.labeled.code
	case g.bare != nil:
		class = &g.bare.code
	}
	return name, class, g.records
}

// fallbackName picks the first noise line that reads like a person's name,
// skipping lines kept as unrecognized subject labels.
func (g *grouper) fallbackName() *string {
	used := make(map[string]struct{})
	for _, r := range g.records {
		if !r.Subject.Recognized() {
			used[r.Subject.Raw] = struct{}{}
		}
	}
	// title-case lines first; an upper-case line only when no title-case
	// line exists and it is not a heading
	for _, text := range g.noise {
		if _, ok := used[text]; ok {
			continue
		}
		if reNameLike.MatchString(text) {
			name := cleanName(text)
			return &name
		}
	}
	for _, text := range g.noise {
		if _, ok := used[text]; ok {
			continue
		}
		if reNameLikeCaps.MatchString(text) && !isHeading(text) {
			name := cleanName(text)
			return &name
		}
	}
	return nil
}

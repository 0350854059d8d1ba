package transcript

// Assemble builds the final record from the grouped subject records. Label
// text nothing recognized is kept for review only when scores were read for
// it. Order is preserved and Subjects is never nil.
func Assemble(name *string, class *ClassCode, records []SubjectRecord) TranscriptRecord {
	subjects := make([]SubjectRecord, 0, len(records))
	for _, r := range records {
		if !r.Subject.Recognized() && r.ScoreCount() == 0 {
			continue
		}
		subjects = append(subjects, r)
	}
	return TranscriptRecord{StudentName: name, ClassCode: class, Subjects: subjects}
}

package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

// Transcript is a stored, structured transcript.
type Transcript struct {
	ID          uuid.UUID                   `json:"id"`
	SourcePath  string                      `json:"source_path"`
	ContentHash string                      `json:"content_hash"`
	Record      transcript.TranscriptRecord `json:"record"`
	NeedsReview bool                        `json:"needs_review"`
	CreatedAt   time.Time                   `json:"created_at"`
}

// SubjectRow is one subject line of a stored transcript joined with its
// owner, the shape exports are written from.
type SubjectRow struct {
	TranscriptID uuid.UUID `json:"transcript_id"`
	SourcePath   string    `json:"source_path"`
	StudentName  *string   `json:"student_name,omitempty"`
	ClassCode    *string   `json:"class_code,omitempty"`
	NeedsReview  bool      `json:"needs_review"`
	Position     int       `json:"position"`
	Subject      string    `json:"subject"`
	Recognized   bool      `json:"recognized"`
	Term1        *string   `json:"term1,omitempty"`
	Term2        *string   `json:"term2,omitempty"`
	Final        *string   `json:"final,omitempty"`
}

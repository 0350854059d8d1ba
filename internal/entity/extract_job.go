package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/transcript-reader/constants"
)

// ExtractJob represents one OCR+parse attempt for data transfer between layers.
type ExtractJob struct {
	ID             uuid.UUID           `json:"id"`
	SourcePath     string              `json:"source_path"`
	ContentHash    string              `json:"content_hash"`
	Status         constants.JobStatus `json:"status"`
	Engine         string              `json:"engine"`
	FragmentCount  int                 `json:"fragment_count"`
	MeanConfidence float64             `json:"mean_confidence"`
	ErrorMessage   *string             `json:"error_message,omitempty"`
	TranscriptID   *uuid.UUID          `json:"transcript_id,omitempty"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     *time.Time          `json:"finished_at,omitempty"`
}

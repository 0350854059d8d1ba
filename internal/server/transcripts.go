package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/transcript-reader/internal/async"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/export"
	"github.com/joseph-ayodele/transcript-reader/internal/pipeline"
	"github.com/joseph-ayodele/transcript-reader/internal/repository"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
	"github.com/joseph-ayodele/transcript-reader/internal/utils"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Processor is the part of pipeline.Processor the server drives.
type Processor interface {
	ProcessFile(ctx context.Context, path string) (*pipeline.Result, error)
	Process(ctx context.Context, sourcePath string, data []byte) (*pipeline.Result, error)
}

// TranscriptService implements TranscriptServiceServer. Processor, Queue and
// Export may be nil; the calls that need them then fail with Unavailable.
type TranscriptService struct {
	parser      *transcript.Parser
	processor   Processor
	queue       async.Queue
	transcripts repository.TranscriptRepository
	export      *export.Service
	logger      *slog.Logger
}

type Deps struct {
	Parser      *transcript.Parser
	Processor   Processor
	Queue       async.Queue
	Transcripts repository.TranscriptRepository
	Export      *export.Service
}

func NewTranscriptService(d Deps, logger *slog.Logger) *TranscriptService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TranscriptService{
		parser:      d.Parser,
		processor:   d.Processor,
		queue:       d.Queue,
		transcripts: d.Transcripts,
		export:      d.Export,
		logger:      logger,
	}
}

type parseRequest struct {
	Fragments []transcript.Fragment `json:"fragments"`
	Trace     bool                  `json:"trace"`
}

type parseResponse struct {
	Record      transcript.TranscriptRecord `json:"record"`
	NeedsReview bool                        `json:"needs_review"`
	Trace       []transcript.TraceStep      `json:"trace,omitempty"`
}

// ParseFragments structures already-recognized fragments without touching
// storage.
func (s *TranscriptService) ParseFragments(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req parseRequest
	if err := utils.FromStruct(in, &req); err != nil {
		return nil, common.InvalidArgumentErrorf("fragments: %v", err)
	}
	if s.parser == nil {
		return nil, common.ErrUnavailable
	}

	var out parseResponse
	if req.Trace {
		out.Record, out.Trace = s.parser.Trace(req.Fragments)
	} else {
		out.Record = s.parser.Parse(req.Fragments)
	}
	out.NeedsReview = out.Record.NeedsReview()
	common.LoggerFromContext(ctx, s.logger).Info("parse.fragments.ok",
		"fragments", len(req.Fragments),
		"subjects", len(out.Record.Subjects),
	)
	return utils.ToStruct(out)
}

func (s *TranscriptService) GetTranscript(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		ID string `json:"id"`
	}
	if err := utils.FromStruct(in, &req); err != nil {
		return nil, common.InvalidArgumentErrorf("request: %v", err)
	}
	req.ID = strings.TrimSpace(req.ID)
	v := common.NewValidator().Field("id", req.ID, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	id := uuid.MustParse(req.ID)
	if s.transcripts == nil {
		return nil, common.ErrUnavailable
	}

	t, err := s.transcripts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return utils.ToPBTranscript(t)
}

type listRequest struct {
	NeedsReview *bool `json:"needs_review"`
	Limit       int   `json:"limit"`
	Offset      int   `json:"offset"`
}

func (r listRequest) filter() (repository.ListFilter, error) {
	if r.Limit < 0 || r.Offset < 0 {
		return repository.ListFilter{}, common.InvalidArgumentError("limit and offset must not be negative")
	}
	f := repository.ListFilter{NeedsReview: r.NeedsReview, Limit: r.Limit, Offset: r.Offset}
	if f.Limit == 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return f, nil
}

// ListTranscripts returns stored transcripts, newest first.
func (s *TranscriptService) ListTranscripts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listRequest
	if err := utils.FromStruct(in, &req); err != nil {
		return nil, common.InvalidArgumentErrorf("request: %v", err)
	}
	f, err := req.filter()
	if err != nil {
		return nil, err
	}
	if s.transcripts == nil {
		return nil, common.ErrUnavailable
	}

	ts, err := s.transcripts.List(ctx, f)
	if err != nil {
		return nil, err
	}
	items, err := utils.ToPBTranscripts(ts)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"transcripts": items})
}

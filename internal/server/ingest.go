package server

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/transcript-reader/constants"
	"github.com/joseph-ayodele/transcript-reader/internal/async"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/ingest"
	"github.com/joseph-ayodele/transcript-reader/internal/pipeline"
	"github.com/joseph-ayodele/transcript-reader/internal/utils"
)

const maxFilenameLen = 255

type processFileRequest struct {
	Path        string `json:"path"`
	ImageBase64 string `json:"image_base64"`
	Filename    string `json:"filename"`
	Async       bool   `json:"async"`
}

type processFileResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	*pipeline.Result
}

// ProcessFile runs one image through the pipeline. The image is either a
// server-side path or inline bytes (image_base64 plus a filename whose
// extension names the format). With async set, a path is queued and the
// call returns QUEUED at once.
func (s *TranscriptService) ProcessFile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req processFileRequest
	if err := utils.FromStruct(in, &req); err != nil {
		return nil, common.InvalidArgumentErrorf("request: %v", err)
	}
	req.Path = strings.TrimSpace(req.Path)
	log := common.LoggerFromContext(ctx, s.logger)

	switch {
	case req.Path == "" && req.ImageBase64 == "":
		return nil, common.InvalidArgumentError("path or image_base64 is required")
	case req.Path != "" && req.ImageBase64 != "":
		return nil, common.InvalidArgumentError("path and image_base64 are mutually exclusive")
	case req.Async && req.Path == "":
		return nil, common.InvalidArgumentError("async processing needs a path")
	}

	if req.Async {
		if s.queue == nil {
			return nil, common.ErrUnavailable
		}
		job := async.Job{Path: req.Path, SubmittedAt: time.Now(), RequestID: common.RequestIDFromContext(ctx)}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			return nil, err
		}
		log.Info("process.file.queued", "path", req.Path)
		return utils.ToStruct(processFileResponse{Status: string(constants.JobStatusQueued), Path: req.Path})
	}

	if s.processor == nil {
		return nil, common.ErrUnavailable
	}
	var (
		res *pipeline.Result
		err error
	)
	if req.Path != "" {
		log.Info("process.file.start", "path", req.Path)
		res, err = s.processor.ProcessFile(ctx, req.Path)
	} else {
		name := filepath.Base(strings.TrimSpace(req.Filename))
		v := common.NewValidator().Field("filename", name, common.MaxLength(maxFilenameLen))
		if ext := filepath.Ext(name); len(ext) < 2 || name == ext {
			v.Field("filename", name, common.Invalid("must carry an image extension when image_base64 is set"))
		}
		if err := common.ValidateAndReturnError(v); err != nil {
			return nil, err
		}
		data, decErr := base64.StdEncoding.DecodeString(req.ImageBase64)
		if decErr != nil {
			return nil, common.InvalidArgumentErrorf("image_base64: %v", decErr)
		}
		log.Info("process.upload.start", "filename", name, "bytes", len(data))
		res, err = s.processor.Process(ctx, name, data)
	}
	if err != nil {
		return nil, err
	}
	return utils.ToStruct(processFileResponse{Status: string(constants.JobStatusParsed), Result: res})
}

type processDirectoryRequest struct {
	Root       string   `json:"root"`
	SkipHidden *bool    `json:"skip_hidden"`
	Exts       []string `json:"exts"`
	Async      bool     `json:"async"`
}

type dirItem struct {
	Path         string `json:"path"`
	Status       string `json:"status"`
	TranscriptID string `json:"transcript_id,omitempty"`
	NeedsReview  bool   `json:"needs_review,omitempty"`
	Error        string `json:"error,omitempty"`
}

type processDirectoryResponse struct {
	Scanned   uint32    `json:"scanned"`
	Matched   uint32    `json:"matched"`
	Succeeded uint32    `json:"succeeded"`
	Failed    uint32    `json:"failed"`
	Results   []dirItem `json:"results"`
}

// ProcessDirectory scans root for images and processes each, or queues each
// when async is set. Per-file failures are reported in the results and do
// not fail the call.
func (s *TranscriptService) ProcessDirectory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req processDirectoryRequest
	if err := utils.FromStruct(in, &req); err != nil {
		return nil, common.InvalidArgumentErrorf("request: %v", err)
	}
	root := strings.TrimSpace(req.Root)
	if root == "" {
		return nil, common.InvalidArgumentError("root is required")
	}
	skipHidden := true
	if req.SkipHidden != nil {
		skipHidden = *req.SkipHidden
	}
	if req.Async && s.queue == nil || !req.Async && s.processor == nil {
		return nil, common.ErrUnavailable
	}

	log := common.LoggerFromContext(ctx, s.logger)
	log.Info("process.directory.start", "root", root, "skip_hidden", skipHidden, "async", req.Async)
	files, stats, err := ingest.ScanDirectory(ctx, root, ingest.ScanOptions{IncludeExts: req.Exts, SkipHidden: skipHidden})
	if err != nil {
		return nil, err
	}

	out := processDirectoryResponse{
		Scanned: stats.Scanned,
		Matched: stats.Matched,
		Failed:  stats.Failed,
		Results: make([]dirItem, 0, len(files)),
	}
	for _, f := range files {
		item := dirItem{Path: f.Path}
		switch {
		case f.Err != "":
			item.Status, item.Error = string(constants.JobStatusFailed), f.Err
		case req.Async:
			job := async.Job{Path: f.Path, SubmittedAt: time.Now(), RequestID: common.RequestIDFromContext(ctx)}
			if err := s.queue.Enqueue(ctx, job); err != nil {
				item.Status, item.Error = string(constants.JobStatusFailed), err.Error()
				out.Failed++
				break
			}
			item.Status = string(constants.JobStatusQueued)
			out.Succeeded++
		default:
			res, err := s.processor.ProcessFile(ctx, f.Path)
			if err != nil {
				log.Error("pipeline.failed", "path", f.Path, "err", err)
				item.Status, item.Error = string(constants.JobStatusFailed), err.Error()
				out.Failed++
				break
			}
			item.Status = string(constants.JobStatusParsed)
			item.TranscriptID = res.TranscriptID.String()
			item.NeedsReview = res.NeedsReview
			out.Succeeded++
		}
		out.Results = append(out.Results, item)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	log.Info("process.directory.done",
		"root", root,
		"scanned", out.Scanned,
		"matched", out.Matched,
		"succeeded", out.Succeeded,
		"failed", out.Failed,
	)
	return utils.ToStruct(out)
}

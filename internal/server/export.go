package server

import (
	"context"
	"encoding/base64"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/utils"
)

// ExportTranscripts returns an XLSX workbook of stored subject rows,
// base64-encoded under "xlsx".
func (s *TranscriptService) ExportTranscripts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listRequest
	if err := utils.FromStruct(in, &req); err != nil {
		return nil, common.InvalidArgumentErrorf("request: %v", err)
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, common.InvalidArgumentError("limit and offset must not be negative")
	}
	if s.export == nil {
		return nil, common.ErrUnavailable
	}

	f, _ := req.filter()
	if req.Limit == 0 {
		f.Limit, f.Offset = 0, 0 // export everything unless a page is asked for
	}
	xlsx, err := s.export.ExportTranscriptsXLSX(ctx, f)
	if err != nil {
		common.LoggerFromContext(ctx, s.logger).Error("export.xlsx.failed", "err", err)
		return nil, err
	}
	return structpb.NewStruct(map[string]any{
		"xlsx":  base64.StdEncoding.EncodeToString(xlsx),
		"bytes": len(xlsx),
	})
}

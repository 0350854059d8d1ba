// Package utils converts between domain values and the structpb messages
// carried by the gRPC surface.
package utils

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/transcript-reader/internal/entity"
)

// ToStruct converts any JSON-encodable value whose JSON form is an object.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("struct from %T: %w", v, err)
	}
	return out, nil
}

// FromStruct decodes s into v through its JSON form. A nil s decodes as {}.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func ToPBTranscript(t *entity.Transcript) (*structpb.Struct, error) {
	return ToStruct(t)
}

func ToPBTranscripts(ts []*entity.Transcript) ([]any, error) {
	out := make([]any, 0, len(ts))
	for _, t := range ts {
		s, err := ToPBTranscript(t)
		if err != nil {
			return nil, err
		}
		out = append(out, s.AsMap())
	}
	return out, nil
}

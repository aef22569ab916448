package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/arplayback/internal/playback"
)

// toStruct converts v to a Struct through its JSON form so field names match
// the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return structpb.NewStruct(m)
}

// fromStruct is the inverse of toStruct.
func fromStruct(s *structpb.Struct, v any) error {
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("failed to encode struct: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode into %T: %w", v, err)
	}
	return nil
}

func statusStruct(st playback.Status) (*structpb.Struct, error) {
	return toStruct(st)
}

// MoveResult answers Next and Previous.
type MoveResult struct {
	Moved  bool            `json:"moved"`
	Status playback.Status `json:"status"`
}

func moveStruct(moved bool, st playback.Status) (*structpb.Struct, error) {
	return toStruct(MoveResult{Moved: moved, Status: st})
}

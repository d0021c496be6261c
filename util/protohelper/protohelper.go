// Package protohelper converts between JSON-encodable Go values and protobuf
// well-known types carried over gRPC.
package protohelper

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ValueToStruct encodes v as JSON and parses the result into a Struct.
// v must encode to a JSON object.
func ValueToStruct(v any) (*structpb.Struct, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to convert value to struct: %w", err)
	}
	return s, nil
}

// StructToValue decodes s into out, which must be a pointer.
func StructToValue(s *structpb.Struct, out any) error {
	if s == nil {
		return fmt.Errorf("nil struct")
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode struct: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode struct: %w", err)
	}
	return nil
}

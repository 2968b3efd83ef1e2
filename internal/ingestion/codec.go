package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	EncodingJSON     = "json"
	EncodingProtobuf = "protobuf"

	ContentTypeProtobuf = "application/x-protobuf"
)

// ErrDecode is matched by every codec decode failure.
var ErrDecode = errors.New("payload decode failed")

// Codec converts between wire bytes and payloads.
type Codec interface {
	Name() string
	Decode(data []byte) (v1.Payload, error)
	Encode(p v1.Payload) ([]byte, error)
}

// CodecFor returns the codec registered under name.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", EncodingJSON:
		return JSONCodec{}, nil
	case EncodingProtobuf:
		return ProtobufCodec{}, nil
	}
	return nil, fmt.Errorf("unknown payload encoding %q", name)
}

// JSONCodec decodes a JSON object. Numbers are kept as json.Number so
// integer distances are not rounded through float64.
type JSONCodec struct{}

func (JSONCodec) Name() string { return EncodingJSON }

func (JSONCodec) Decode(data []byte) (v1.Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var p v1.Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: payload must be a JSON object", ErrDecode)
	}
	return p, nil
}

func (JSONCodec) Encode(p v1.Payload) ([]byte, error) {
	return json.Marshal(p)
}

// ProtobufCodec carries payloads as google.protobuf.Struct wire bytes.
type ProtobufCodec struct{}

func (ProtobufCodec) Name() string { return EncodingProtobuf }

func (ProtobufCodec) Decode(data []byte) (v1.Payload, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return v1.Payload(s.AsMap()), nil
}

func (ProtobufCodec) Encode(p v1.Payload) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]interface{}(p))
	if err != nil {
		return nil, fmt.Errorf("failed to build struct: %w", err)
	}
	return proto.Marshal(s)
}

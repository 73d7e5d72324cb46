// Package server exposes the indexer over HTTP and gRPC. The gRPC service
// speaks JSON-encoded messages under the "json" content subtype, not
// protobuf; clients must use Client or force the same codec.
package server

import "encoding/json"

// jsonCodec carries gRPC messages as JSON, so the service needs no generated
// protobuf types.
type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

package riskv1

import (
	"testing"

	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	if codec == nil {
		t.Fatalf("json codec not registered")
	}

	in := &AssessObjectRequest{ObjectID: "o-1"}
	data, err := codec.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"object_id":"o-1"}` {
		t.Fatalf("unexpected wire form %s", data)
	}

	var out AssessObjectRequest
	if err := codec.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ObjectID != "o-1" {
		t.Fatalf("unexpected object id %q", out.ObjectID)
	}
}

func TestCodecEmptyPayload(t *testing.T) {
	var req ModelStatusRequest
	if err := encoding.GetCodec(CodecName).Unmarshal(nil, &req); err != nil {
		t.Fatalf("empty payload should decode to zero value: %v", err)
	}
}

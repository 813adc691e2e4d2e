package ws

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
)

// Codec encodes messages sent to preview clients.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	// MessageType is the websocket message type the encoding travels in.
	MessageType() int
}

type jsonCodec struct{}

func (jsonCodec) Name() string                  { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) MessageType() int              { return websocket.TextMessage }

type cborCodec struct{}

func (cborCodec) Name() string                  { return "cbor" }
func (cborCodec) Marshal(v any) ([]byte, error) { return cbor.Marshal(v) }
func (cborCodec) MessageType() int              { return websocket.BinaryMessage }

var (
	JSON Codec = jsonCodec{}
	CBOR Codec = cborCodec{}
)

// CodecByName maps "json" and "cbor" to their codec.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

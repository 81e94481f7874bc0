// Package msgpack encodes session documents as MessagePack.
package msgpack

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrEmpty is returned when decoding zero bytes.
var ErrEmpty = errors.New("empty MessagePack data")

// Decode deserializes MessagePack data into v, which must be a pointer.
// Integers held in interface values decode as int64 so cached result
// rows keep a stable type across a save/load cycle.
//
// Example:
//
//	var doc session.Document
//	err := msgpack.Decode(data, &doc)
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmpty
	}

	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	return nil
}

// Encode serializes v into MessagePack. Map keys are sorted so equal
// documents encode to equal bytes.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeMap deserializes a document into a generic map, for inspecting
// documents whose shape is not known up front.
func DecodeMap(data []byte) (map[string]any, error) {
	var result map[string]any
	if err := Decode(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

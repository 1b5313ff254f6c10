package modelfile

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

func decodeMsgpack(src []byte) (map[string]any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(src))
	model := map[string]any{}
	if err := dec.Decode(&model); err != nil {
		return nil, fmt.Errorf("decoding msgpack: %w", err)
	}
	return model, nil
}

// EncodeMsgpack serializes a model so it can be loaded again with Decode.
func EncodeMsgpack(model map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(model); err != nil {
		return nil, fmt.Errorf("encoding msgpack: %w", err)
	}
	return buf.Bytes(), nil
}

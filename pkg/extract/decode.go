package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Decode parses a JSON document keeping numbers as json.Number so ids and
// counts survive without float rounding.
func Decode(r io.Reader) (interface{}, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid JSON: unexpected data after top-level value")
	}
	return doc, nil
}

// DecodeBytes is Decode for an in-memory body
func DecodeBytes(body []byte) (interface{}, error) {
	return Decode(bytes.NewReader(body))
}

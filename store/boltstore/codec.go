package boltstore

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/crawlcore/crawlcore/reference"
)

func encodeReference(ref *reference.Reference) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ref); err != nil {
		return nil, fmt.Errorf("boltstore: encode reference %q: %w", ref.Key, err)
	}
	return buf.Bytes(), nil
}

func decodeReference(data []byte) (*reference.Reference, error) {
	var ref reference.Reference
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&ref); err != nil {
		return nil, fmt.Errorf("boltstore: decode reference: %w", err)
	}
	return &ref, nil
}

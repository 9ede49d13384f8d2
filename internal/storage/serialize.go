package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mindthegap/govdata/internal/contracts"
)

// MarshalTrainingSetJSON renders the training set as one pretty-printed
// JSON document.
func MarshalTrainingSetJSON(examples []contracts.TrainingExample) ([]byte, error) {
	body, err := json.MarshalIndent(examples, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal training set: %w", err)
	}
	return body, nil
}

// MarshalTrainingSetJSONL renders the same training set as JSON Lines,
// one example per line. Both serializers consume the identical slice;
// there is never a second dataset.
func MarshalTrainingSetJSONL(examples []contracts.TrainingExample) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return nil, fmt.Errorf("failed to encode training example: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// MarshalDocument renders any pipeline output document as pretty JSON.
func MarshalDocument(doc interface{}) ([]byte, error) {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return body, nil
}

package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"propreg/pkg/platform/sentinel"
)

// Record is a document stored in the ledger under its own key.
type Record interface {
	DocType() string
	Key() (string, error)
}

type docHeader struct {
	DocType string `json:"docType"`
}

// Encode serializes rec as a JSON object whose first field is docType.
func Encode(rec Record) ([]byte, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", rec.DocType(), err)
	}
	docType, err := json.Marshal(rec.DocType())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", rec.DocType(), err)
	}
	var buf bytes.Buffer
	buf.WriteString(`{"docType":`)
	buf.Write(docType)
	if !bytes.Equal(body, []byte("{}")) {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// Decode parses data into rec after checking the stored docType matches.
// A mismatch wraps sentinel.ErrInvalidState. Unknown fields are ignored.
func Decode(data []byte, rec Record) error {
	var h docHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("decode %s: %w", rec.DocType(), err)
	}
	if h.DocType != rec.DocType() {
		return fmt.Errorf("stored docType %q, want %q: %w", h.DocType, rec.DocType(), sentinel.ErrInvalidState)
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return fmt.Errorf("decode %s: %w", rec.DocType(), err)
	}
	return nil
}

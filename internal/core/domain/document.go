package domain

import "time"

// Document is a customer-feedback record after anonymization. The raw text is
// never stored on it; only the anonymized body is eligible for persistence and
// indexing.
type Document struct {
	ID             string            `json:"id"`
	AnonymizedText string            `json:"text"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// RawRecord is one record as delivered by an external importer, before
// anonymization.
type RawRecord struct {
	ID       string            `json:"id,omitempty"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestReport is the per-record outcome of a batch import. OriginalValue on
// the contained matches exists only for operator preview and is never
// persisted past this response.
type IngestReport struct {
	DocumentID string     `json:"document_id,omitempty"`
	Anonymized bool       `json:"anonymized"`
	PIIMatches []PIIMatch `json:"pii_matches,omitempty"`
	Error      string     `json:"error,omitempty"`
}

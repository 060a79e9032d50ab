package domain

// RawUpload represents opaque bytes received from a caller before text
// extraction. Normalisers turn it into plain text for ingestion.
type RawUpload struct {
	// Filename is the client-supplied name of the upload.
	Filename string

	// MIMEType is the declared content type, when known.
	MIMEType string

	// Data is the raw document bytes.
	Data []byte
}

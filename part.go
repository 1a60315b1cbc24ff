package slr

// Part represents one content part of a model request (text or inline blob)
type Part struct {
	Type     string
	Text     string
	Data     []byte
	MimeType string
}

// NewTextPart creates a new text part
func NewTextPart(text string) *Part {
	return &Part{Type: "text", Text: text}
}

// NewBlobPart creates an inline binary part, e.g. a PDF, with its mime type
func NewBlobPart(data []byte, mimeType string) *Part {
	return &Part{Type: "blob", Data: data, MimeType: mimeType}
}

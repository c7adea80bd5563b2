package models

import (
	"strings"
	"time"
)

// DocumentType is the classification tag of an uploaded document.
type DocumentType string

const (
	DocTypeResume      DocumentType = "resume"
	DocTypeCoverLetter DocumentType = "cover-letter"
	DocTypeOther       DocumentType = "other"
)

// ParseDocumentType accepts the three known tags (case-insensitive).
func ParseDocumentType(s string) (DocumentType, bool) {
	switch t := DocumentType(strings.ToLower(strings.TrimSpace(s))); t {
	case DocTypeResume, DocTypeCoverLetter, DocTypeOther:
		return t, true
	default:
		return "", false
	}
}

// GuessDocumentType classifies by file name when the server sent no tag.
func GuessDocumentType(name string) DocumentType {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "resume"):
		return DocTypeResume
	case strings.Contains(n, "cover"), strings.Contains(n, "letter"):
		return DocTypeCoverLetter
	default:
		return DocTypeOther
	}
}

// Document is the metadata of an uploaded file. Documents are created by
// upload and removed by delete; they are never edited in place.
type Document struct {
	Ref
	Filename     string       `json:"filename"`
	OriginalName string       `json:"originalname,omitempty"`
	MimeType     string       `json:"mimetype,omitempty"`
	Size         int64        `json:"size"`
	CreatedAt    time.Time    `json:"createdAt"`
	DocType      DocumentType `json:"docType,omitempty"`
}

func (d *Document) ref() *Ref { return &d.Ref }

// KeyDocuments gives documents without a usable key a local one.
func KeyDocuments(docs []Document) { assignLocalIDs(docs, "doc-") }

// Title is the name shown to the user.
func (d Document) Title() string {
	switch {
	case d.OriginalName != "":
		return d.OriginalName
	case d.Filename != "":
		return d.Filename
	default:
		return "document"
	}
}

// Kind is the server tag when it is a known one, otherwise a guess from the title.
func (d Document) Kind() DocumentType {
	if t, ok := ParseDocumentType(string(d.DocType)); ok {
		return t
	}
	return GuessDocumentType(d.Title())
}

// UploadResponse is the body of POST /profile/document.
type UploadResponse struct {
	Doc     *Document `json:"doc,omitempty"`
	Profile *Profile  `json:"profile,omitempty"`
}

// Download is a fetched document body. Filename is empty when the response
// carried no filename hint.
type Download struct {
	Body        []byte
	Filename    string
	ContentType string
}

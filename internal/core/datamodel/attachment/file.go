package attachment

import (
	"path/filepath"
	"strings"
)

// File is an uploaded document held in memory between the transport layer,
// the storage client and the text extractor.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
}

// Extension returns the lower-cased file extension without the dot.
func (f File) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), ".")
}

func (f File) IsPDF() bool {
	return f.ContentType == "application/pdf" || f.Extension() == "pdf"
}

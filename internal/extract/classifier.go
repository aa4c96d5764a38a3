package extract

import "strings"

// Tag identifies the extraction strategy that applies to a file format family.
type Tag int

const (
	TagUnsupported Tag = iota
	TagPDF
	TagDOCX
	TagSpreadsheet
	TagImage
	TagPlainText
)

var tagNames = [...]string{
	TagUnsupported: "unsupported",
	TagPDF:         "pdf",
	TagDOCX:        "docx",
	TagSpreadsheet: "spreadsheet",
	TagImage:       "image",
	TagPlainText:   "plain_text",
}

func (t Tag) String() string {
	if t < 0 || int(t) >= len(tagNames) {
		return "unknown"
	}
	return tagNames[t]
}

var extensionTags = map[string]Tag{
	"pdf":  TagPDF,
	"docx": TagDOCX,
	"xlsx": TagSpreadsheet,
	"xls":  TagSpreadsheet,
	"png":  TagImage,
	"jpg":  TagImage,
	"jpeg": TagImage,
	"gif":  TagImage,
	"txt":  TagPlainText,
}

// NormalizeExtension lower-cases ext and strips surrounding whitespace and a leading dot.
func NormalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// Classify maps an extension (with or without leading dot, any case) to a Tag.
// Unknown extensions, including legacy .doc, map to TagUnsupported.
func Classify(ext string) Tag {
	if tag, ok := extensionTags[NormalizeExtension(ext)]; ok {
		return tag
	}
	return TagUnsupported
}

// Extensions returns the extensions that have a real extraction strategy.
func Extensions() []string {
	out := make([]string, 0, len(extensionTags))
	for ext := range extensionTags {
		out = append(out, ext)
	}
	return out
}

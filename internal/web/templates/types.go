package templates

// SourceInput is one file picker on the form.
type SourceInput struct {
	Field string // multipart field name
	Label string
}

// IndexParams drives the upload form.
type IndexParams struct {
	Organization string
	Domain       string
	Sources      []SourceInput
	MaxFileMB    int64
}

// RecordView is a one-row preview of an exported record.
type RecordView struct {
	Caption string
	Header  []string
	Values  []string
}

// Download is a generated file offered as a data URI.
type Download struct {
	FileName string
	Href     string
}

// ResultParams drives the result page.
type ResultParams struct {
	Title     string
	Checklist string
	Notices   []string
	Records   []RecordView
	Downloads []Download
}

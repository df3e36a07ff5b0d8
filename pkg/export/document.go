package export

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Section is one titled table followed by summary lines, e.g. a session on a
// transcript with its GPA footer.
type Section struct {
	Heading string
	Data    Dataset
	Summary []string
}

// Document is a multi-section export.
type Document struct {
	Title    string
	Subtitle []string
	Sections []Section
	Footer   []string
}

// Renderer turns a Document into encoded bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	ContentType() string
	Extension() string
}

package knowledge

// TagType marks where a document came from. Learned narratives carry
// TypeApprovedSAR; the seed corpus sets its own values.
const (
	TagType         = "type"
	TypeApprovedSAR = "approved_sar"
)

// Document is one retrievable piece of reference text.
type Document struct {
	ID        string            `json:"id" yaml:"id"`
	Text      string            `json:"text" yaml:"text"`
	Embedding []float32         `json:"-" yaml:"-"`
	Tags      map[string]string `json:"tags,omitempty" yaml:"tags"`
	// Distance from the query vector, set by Nearest. Smaller is closer.
	Distance float32 `json:"distance,omitempty" yaml:"-"`
}

package domain

// Chunk is a derived text span of a parent document.
type Chunk struct {
	// ID is the vector point identifier.
	ID string

	// ParentID is the newsletter the chunk was cut from.
	ParentID string

	// Index is the ordinal within the parent, contiguous from 0.
	Index int

	// Text is the raw chunk text.
	Text string

	// Embedding has the collection's configured dimensionality.
	Embedding []float32
}

// Filter is a conjunction of exact-match payload constraints.
type Filter map[string]string

// VectorPoint is one stored vector with its payload.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// VectorHit is a single similarity search match.
type VectorHit struct {
	ID      string
	Score   float64
	Payload ChunkPayload
}

// Payload keys used for filtering.
const (
	PayloadParentID   = "parentId"
	PayloadOwnerID    = "ownerId"
	PayloadSourceType = "sourceType"
)

// ChunkPayload is the structured payload stored alongside each vector.
// Date is RFC 3339 and empty when unknown.
type ChunkPayload struct {
	ParentID   string `json:"parentId"`
	ChunkIndex int    `json:"chunkIndex"`
	Text       string `json:"text"`
	Subject    string `json:"subject"`
	From       string `json:"from"`
	Date       string `json:"date"`
	OwnerID    string `json:"ownerId"`
	SourceType string `json:"sourceType"`
}

// Matches reports whether the payload satisfies every filter constraint.
func (p ChunkPayload) Matches(f Filter) bool {
	for k, v := range f {
		if p.Field(k) != v {
			return false
		}
	}
	return true
}

// Field returns the string value of a filterable payload key.
func (p ChunkPayload) Field(key string) string {
	switch key {
	case PayloadParentID:
		return p.ParentID
	case PayloadOwnerID:
		return p.OwnerID
	case PayloadSourceType:
		return p.SourceType
	case "subject":
		return p.Subject
	case "from":
		return p.From
	case "date":
		return p.Date
	default:
		return ""
	}
}

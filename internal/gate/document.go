package gate

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AccessLevel is the content-side classification of a story. It is a
// property of the document, independent of who is asking for it.
type AccessLevel string

const (
	AccessFree    AccessLevel = "free"
	AccessPreview AccessLevel = "preview"
	AccessPremium AccessLevel = "premium"
)

// Node is one block of a story body. Leaf nodes carry text, container
// nodes carry children. Unknown node types pass through untouched.
type Node struct {
	Type     string  `json:"type,omitempty"`
	Text     string  `json:"text,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Body is a story body tree. It implements driver.Valuer and sql.Scanner
// so it can live in a jsonb column.
type Body []*Node

func (b Body) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

func (b *Body) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("unsupported body column type %T", value)
	}
}

// Location is a point of interest position carried in story metadata.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Document is the content shape the gate operates on. Missing fields are
// rendered as empty or omitted, never treated as an error.
type Document struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug,omitempty"`
	Excerpt     string      `json:"excerpt,omitempty"`
	CoverImage  string      `json:"cover_image,omitempty"`
	Category    string      `json:"category,omitempty"`
	Sensitive   bool        `json:"sensitive"`
	PriceCents  int64       `json:"price_cents,omitempty"`
	Location    *Location   `json:"location,omitempty"`
	AccessLevel AccessLevel `json:"access_level"`

	Body         Body   `json:"body,omitempty"`
	AudioURL     string `json:"audio_url,omitempty"`
	NarrationURL string `json:"narration_url,omitempty"`

	// Gating markers, set only on truncated or metadata-only projections
	// so clients can render an upsell affordance.
	Gated      bool   `json:"_gated,omitempty"`
	GateReason string `json:"_gateReason,omitempty"`
}

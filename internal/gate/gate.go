package gate

// Gate reshapes content documents according to the caller's access
// decision. It is a pure projection: no I/O, no failure modes beyond
// tolerating malformed input.
type Gate struct {
	previewBudget int
}

const defaultPreviewBudget = 500

// New creates a gate with the given preview character budget.
func New(previewBudget int) *Gate {
	if previewBudget <= 0 {
		previewBudget = defaultPreviewBudget
	}
	return &Gate{previewBudget: previewBudget}
}

// Apply returns the projection of doc the caller is entitled to see:
// the document unmodified for free content or full access, a truncated
// preview for preview-level content, and a metadata-only projection for
// premium content.
func (g *Gate) Apply(doc *Document, fullAccess bool) *Document {
	if doc == nil {
		return nil
	}

	if fullAccess || doc.AccessLevel == AccessFree {
		return doc
	}

	if doc.AccessLevel == AccessPreview {
		return g.preview(doc)
	}

	// Premium and any unrecognized level get the most restrictive shape.
	return metadataOnly(doc, string(AccessPremium))
}

func (g *Gate) preview(doc *Document) *Document {
	out := *doc
	out.Body = truncate(doc.Body, g.previewBudget)
	out.AudioURL = ""
	out.NarrationURL = ""
	out.Gated = true
	out.GateReason = string(AccessPreview)
	return &out
}

func metadataOnly(doc *Document, reason string) *Document {
	return &Document{
		ID:          doc.ID,
		Title:       doc.Title,
		Slug:        doc.Slug,
		Excerpt:     doc.Excerpt,
		CoverImage:  doc.CoverImage,
		Category:    doc.Category,
		Sensitive:   doc.Sensitive,
		PriceCents:  doc.PriceCents,
		Location:    doc.Location,
		AccessLevel: doc.AccessLevel,
		Gated:       true,
		GateReason:  reason,
	}
}

package gate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc(level AccessLevel) *Document {
	return &Document{
		ID:          "story-1",
		Title:       "The King's Palace",
		Slug:        "kings-palace",
		Excerpt:     "A walk through the royal compound.",
		CoverImage:  "https://cdn.example/palace.jpg",
		Category:    "heritage",
		Sensitive:   false,
		PriceCents:  500,
		Location:    &Location{Latitude: -2.06, Longitude: 29.74},
		AccessLevel: level,
		Body: Body{
			{Type: "heading", Text: "History"},
			{Type: "paragraph", Text: strings.Repeat("a", 200)},
			{Type: "section", Children: []*Node{
				{Type: "paragraph", Text: strings.Repeat("b", 200)},
				{Type: "paragraph", Text: strings.Repeat("c", 200)},
			}},
			{Type: "paragraph", Text: strings.Repeat("d", 200)},
		},
		AudioURL:     "https://cdn.example/palace.mp3",
		NarrationURL: "https://cdn.example/palace-narration.mp3",
	}
}

func TestApply_FullAccessIsIdentity(t *testing.T) {
	g := New(500)

	for _, level := range []AccessLevel{AccessFree, AccessPreview, AccessPremium} {
		doc := sampleDoc(level)
		out := g.Apply(doc, true)
		assert.Same(t, doc, out, "full access must return the document unmodified")
	}
}

func TestApply_FreeContentUngated(t *testing.T) {
	g := New(500)
	doc := sampleDoc(AccessFree)

	out := g.Apply(doc, false)
	assert.Same(t, doc, out)
	assert.False(t, out.Gated)
}

func TestApply_PreviewTruncatesBody(t *testing.T) {
	g := New(500)
	doc := sampleDoc(AccessPreview)

	out := g.Apply(doc, false)
	require.NotNil(t, out)
	assert.NotSame(t, doc, out)

	assert.True(t, out.Gated)
	assert.Equal(t, "preview", out.GateReason)
	assert.Empty(t, out.AudioURL, "audio is stripped from previews")
	assert.Empty(t, out.NarrationURL)

	got := textLength(out.Body)
	assert.Less(t, got, textLength(doc.Body), "preview must be shorter than the original")
	// The crossing node is kept whole, so the projection may run past
	// the budget by at most one leaf.
	assert.LessOrEqual(t, got, 500+200)

	// Original body untouched.
	assert.Equal(t, 807, textLength(doc.Body))
}

func TestApply_PreviewNeverSplitsALeaf(t *testing.T) {
	g := New(500)
	doc := sampleDoc(AccessPreview)

	out := g.Apply(doc, false)

	var checkWhole func(orig, trunc []*Node)
	checkWhole = func(orig, trunc []*Node) {
		for i, n := range trunc {
			assert.Equal(t, orig[i].Text, n.Text, "a kept node keeps all of its text")
			checkWhole(orig[i].Children, n.Children)
		}
	}
	checkWhole(doc.Body, out.Body)
}

func TestApply_PreviewBudgetAlignedAtNodeBoundary(t *testing.T) {
	g := New(400)
	doc := &Document{
		AccessLevel: AccessPreview,
		Body: Body{
			{Type: "paragraph", Text: strings.Repeat("x", 200)},
			{Type: "paragraph", Text: strings.Repeat("y", 200)},
			{Type: "paragraph", Text: strings.Repeat("z", 200)},
		},
	}

	out := g.Apply(doc, false)
	assert.Equal(t, 400, textLength(out.Body), "node-aligned content fits the budget exactly")
	assert.Len(t, out.Body, 2)
}

func TestApply_PremiumIsMetadataOnly(t *testing.T) {
	g := New(500)
	doc := sampleDoc(AccessPremium)

	out := g.Apply(doc, false)
	require.NotNil(t, out)

	assert.True(t, out.Gated)
	assert.Equal(t, "premium", out.GateReason)

	assert.Nil(t, out.Body, "premium projection never carries a body")
	assert.Empty(t, out.AudioURL)
	assert.Empty(t, out.NarrationURL)

	// Metadata survives.
	assert.Equal(t, doc.Title, out.Title)
	assert.Equal(t, doc.Slug, out.Slug)
	assert.Equal(t, doc.Excerpt, out.Excerpt)
	assert.Equal(t, doc.CoverImage, out.CoverImage)
	assert.Equal(t, doc.Category, out.Category)
	assert.Equal(t, doc.PriceCents, out.PriceCents)
	assert.Equal(t, doc.Location, out.Location)
}

func TestApply_MalformedDocumentDegradesGracefully(t *testing.T) {
	g := New(500)

	assert.Nil(t, g.Apply(nil, false))
	assert.Nil(t, g.Apply(nil, true))

	// No body, no metadata, unknown level: still no panic, still gated.
	out := g.Apply(&Document{AccessLevel: "???"}, false)
	require.NotNil(t, out)
	assert.True(t, out.Gated)
	assert.Equal(t, "premium", out.GateReason)

	// Preview with nil body.
	out = g.Apply(&Document{AccessLevel: AccessPreview}, false)
	require.NotNil(t, out)
	assert.Nil(t, out.Body)

	// Nil nodes inside the tree are skipped.
	out = g.Apply(&Document{
		AccessLevel: AccessPreview,
		Body:        Body{nil, {Type: "paragraph", Text: "ok"}, nil},
	}, false)
	require.NotNil(t, out)
	assert.Equal(t, 2, textLength(out.Body))
}

func TestApply_DefaultBudget(t *testing.T) {
	g := New(0)
	assert.Equal(t, defaultPreviewBudget, g.previewBudget)
}

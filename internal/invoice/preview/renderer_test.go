package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/sections"
)

func kinds(tree Tree) []sections.Kind {
	var out []sections.Kind
	for _, n := range tree.Nodes {
		out = append(out, n.Kind)
	}
	return out
}

func TestBuildFollowsLayoutOrder(t *testing.T) {
	layout := sections.DefaultLayout()
	require.NoError(t, layout.Reorder(sections.KindTotals, sections.KindHeader))
	require.NoError(t, layout.Toggle(sections.KindVerification))

	tree, err := Build(invoice.NewDocument(), layout.EnabledInOrder(), ModeEditor)
	require.NoError(t, err)

	assert.Equal(t, layoutKinds(layout), kinds(tree))
	for _, n := range tree.Nodes {
		set := 0
		for _, p := range []bool{n.Header != nil, n.Client != nil, n.Items != nil, n.Totals != nil, n.Notes != nil, n.Verification != nil} {
			if p {
				set++
			}
		}
		assert.Equal(t, 1, set, "node %s", n.Kind)
	}
}

func layoutKinds(l *sections.Layout) []sections.Kind {
	var out []sections.Kind
	for s := range l.EnabledInOrder() {
		out = append(out, s.Kind)
	}
	return out
}

func TestBuildHeaderFallbacks(t *testing.T) {
	doc := invoice.NewDocument()
	tree, err := Build(doc, sections.DefaultLayout().EnabledInOrder(), ModeEditor)
	require.NoError(t, err)

	h := tree.Nodes[0].Header
	require.NotNil(t, h)
	assert.Equal(t, "Tu Empresa", h.CompanyName)
	assert.Equal(t, "RTN: 0501-XXXX-XXXXXX", h.TaxID)
	assert.False(t, h.HasLogo)
	assert.Contains(t, string(h.Accent), "#6366f1")
}

func TestBuildClientByMode(t *testing.T) {
	doc := invoice.NewDocument()
	require.NoError(t, doc.SetClient(invoice.ClientInfo{Name: "Ferretería El Martillo"}))
	layout := sections.DefaultLayout()

	editor, err := Build(doc, layout.EnabledInOrder(), ModeEditor)
	require.NoError(t, err)
	assert.Equal(t, invoice.SampleClient.Name, editor.Nodes[1].Client.Name)
	assert.True(t, editor.Nodes[1].Client.Sample)

	saved, err := Build(doc, layout.EnabledInOrder(), ModeDocument)
	require.NoError(t, err)
	assert.Equal(t, "Ferretería El Martillo", saved.Nodes[1].Client.Name)
	assert.Equal(t, "RTN: 0801-XXXX-XXXXXX", saved.Nodes[1].Client.TaxID)
	assert.Equal(t, "Honduras", saved.Nodes[1].Client.Address)
}

func TestBuildItemsAndTotals(t *testing.T) {
	doc := invoice.NewDocument()
	item, err := doc.AddLineItem()
	require.NoError(t, err)
	require.NoError(t, doc.UpdateLineItem(item.ID, invoice.FieldPrice, "75"))

	tree, err := Build(doc, sections.DefaultLayout().EnabledInOrder(), ModeEditor)
	require.NoError(t, err)

	items := tree.Nodes[2].Items
	require.Len(t, items.Rows, 3)
	assert.Equal(t, "PRD-001", items.Rows[0].Code)
	assert.Equal(t, "L.150.00", items.Rows[0].Price)
	assert.Equal(t, "L.75.00", items.Rows[2].Price)

	totals := tree.Nodes[3].Totals
	assert.Equal(t, "L.475.00", totals.Subtotal)
	assert.Equal(t, "ISV (15%)", totals.TaxLabel)
	assert.Equal(t, "L.71.25", totals.Tax)
	assert.Equal(t, "L.546.25", totals.Total)
}

func TestBuildZeroItems(t *testing.T) {
	doc := invoice.NewDocument()
	doc.Items = nil

	tree, err := Build(doc, sections.DefaultLayout().EnabledInOrder(), ModeEditor)
	require.NoError(t, err)
	assert.True(t, tree.Nodes[2].Items.Empty)
	assert.Equal(t, "L.0.00", tree.Nodes[3].Totals.Total)
}

func TestRenderHTML(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	doc := invoice.NewDocument()
	require.NoError(t, doc.SetCompanyName("Tech <Store>"))
	require.NoError(t, doc.SetCurrency("USD"))
	layout := sections.DefaultLayout()
	require.NoError(t, layout.Toggle(sections.KindVerification))

	html, err := r.Render(doc, layout.EnabledInOrder(), ModeEditor)
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "Tech &lt;Store&gt;")
	assert.Contains(t, out, "$150.00")
	assert.Contains(t, out, "background-color: #6366f1")
	assert.Contains(t, out, "Validado por SAR")
	assert.Less(t, strings.Index(out, `data-section="header"`), strings.Index(out, `data-section="items"`))
}

func TestRenderHTMLWithLogo(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	doc := invoice.NewDocument()
	logo := "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
	require.NoError(t, doc.SetLogo(logo))

	html, err := r.Render(doc, sections.DefaultLayout().EnabledInOrder(), ModeDocument)
	require.NoError(t, err)
	assert.Contains(t, string(html), `src="`+logo+`"`)
}

func TestRenderBlankNotesOmitsBlock(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	doc := invoice.NewDocument()
	require.NoError(t, doc.SetNotes(" \n\t "))
	tree, err := Build(doc, sections.DefaultLayout().EnabledInOrder(), ModeDocument)
	require.NoError(t, err)
	require.NotNil(t, tree.Nodes[4].Notes)
	assert.True(t, tree.Nodes[4].Notes.Empty)

	html, err := r.HTML(tree)
	require.NoError(t, err)
	assert.Contains(t, string(html), `data-section="notes"`)
	assert.NotContains(t, string(html), invoice.NotesHeading)

	require.NoError(t, doc.SetNotes("Pago a 30 días"))
	html, err = r.Render(doc, sections.DefaultLayout().EnabledInOrder(), ModeDocument)
	require.NoError(t, err)
	assert.Contains(t, string(html), invoice.NotesHeading)
	assert.Contains(t, string(html), "Pago a 30 días")
}

func TestRenderAllSectionsDisabled(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	layout := sections.DefaultLayout()
	for _, k := range sections.Kinds() {
		require.NoError(t, layout.SetEnabled(k, false))
	}

	tree, err := Build(invoice.NewDocument(), layout.EnabledInOrder(), ModeEditor)
	require.NoError(t, err)
	assert.True(t, tree.Empty)
	assert.Empty(t, tree.Nodes)

	html, err := r.HTML(tree)
	require.NoError(t, err)
	assert.Contains(t, string(html), `id="invoice-preview"`)
	assert.NotContains(t, string(html), "data-section")
}

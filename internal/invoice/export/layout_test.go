package export

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/sections"
)

func texts(b Block) []string {
	var out []string
	for _, op := range b.Ops {
		if t, ok := op.(Text); ok {
			out = append(out, t.Value)
		}
	}
	return out
}

func TestBuildLayoutStacksSectionsInOrder(t *testing.T) {
	layout := sections.DefaultLayout()
	require.NoError(t, layout.Reorder(sections.KindTotals, sections.KindClient))

	l, err := BuildLayout(invoice.NewDocument(), layout.EnabledInOrder())
	require.NoError(t, err)

	require.Len(t, l.Blocks, 5)
	want := []sections.Kind{sections.KindHeader, sections.KindTotals, sections.KindClient, sections.KindItems, sections.KindNotes}
	y := Margin
	for i, b := range l.Blocks {
		assert.Equal(t, want[i], b.Kind)
		assert.Equal(t, y, b.Top)
		y += b.Height
	}
	assert.Equal(t, y+Margin, l.Height)
	assert.Equal(t, PageWidth, l.Width)
}

func TestBuildLayoutContent(t *testing.T) {
	doc := invoice.NewDocument()
	require.NoError(t, doc.SetCompanyName("Tech Store"))
	require.NoError(t, doc.SetCurrency("USD"))
	item, err := doc.AddLineItem()
	require.NoError(t, err)
	require.NoError(t, doc.UpdateLineItem(item.ID, invoice.FieldPrice, "75"))

	l, err := BuildLayout(doc, sections.DefaultLayout().EnabledInOrder())
	require.NoError(t, err)

	assert.Contains(t, texts(l.Blocks[0]), "Tech Store")
	assert.Contains(t, texts(l.Blocks[0]), "RTN: 0501-XXXX-XXXXXX")
	assert.Contains(t, texts(l.Blocks[1]), "Empresa Cliente S.A.")
	assert.Contains(t, texts(l.Blocks[2]), "PRD-003")
	assert.Contains(t, texts(l.Blocks[2]), "$75.00")
	assert.Equal(t, []string{"Subtotal", "$475.00", "ISV (15%)", "$71.25", "TOTAL", "$546.25"}, texts(l.Blocks[3]))
}

func TestBuildLayoutHeaderUsesAccentAndPlaceholder(t *testing.T) {
	doc := invoice.NewDocument()
	require.NoError(t, doc.SetAccentColor("#10b981"))

	l, err := BuildLayout(doc, sections.DefaultLayout().EnabledInOrder())
	require.NoError(t, err)

	header := l.Blocks[0]
	band, ok := header.Ops[0].(Box)
	require.True(t, ok)
	assert.Equal(t, color.NRGBA{R: 0x10, G: 0xb9, B: 0x81, A: 0xff}, band.Fill)

	var placeholder bool
	for _, op := range header.Ops {
		if _, ok := op.(Placeholder); ok {
			placeholder = true
		}
	}
	assert.True(t, placeholder)
}

func TestBuildLayoutAllDisabled(t *testing.T) {
	layout := sections.DefaultLayout()
	for _, k := range sections.Kinds() {
		require.NoError(t, layout.SetEnabled(k, false))
	}
	l, err := BuildLayout(invoice.NewDocument(), layout.EnabledInOrder())
	require.NoError(t, err)
	assert.Empty(t, l.Blocks)
	assert.Equal(t, 2*Margin, l.Height)
}

func TestBuildLayoutZeroItemsAndEmptyNotes(t *testing.T) {
	doc := invoice.NewDocument()
	doc.Items = nil
	require.NoError(t, doc.SetNotes(""))

	l, err := BuildLayout(doc, sections.DefaultLayout().EnabledInOrder())
	require.NoError(t, err)

	assert.Contains(t, texts(l.Blocks[2]), "Sin productos")
	assert.Contains(t, texts(l.Blocks[3]), "L.0.00")
	assert.Zero(t, l.Blocks[4].Height)
}

func TestBuildLayoutRejectsBadColor(t *testing.T) {
	doc := invoice.NewDocument()
	doc.AccentColor = "indigo"
	_, err := BuildLayout(doc, sections.DefaultLayout().EnabledInOrder())
	assert.Error(t, err)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"uno dos", "tres"}, wrap("uno dos tres", 8))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, wrap("abcdefghij", 4))
	assert.Equal(t, []string{"a", "", "b"}, wrap("a\n\nb", 10))
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#6366f1")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x63, G: 0x66, B: 0xf1, A: 0xff}, c)

	_, err = ParseHexColor("#66f")
	assert.Error(t, err)
}

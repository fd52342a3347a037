package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/sections"
)

func logoURI(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	for x := 0; x < 20; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.NRGBA{R: 0xff, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func rasterize(t *testing.T, doc *invoice.Document, layout *sections.Layout) (Layout, image.Image) {
	t.Helper()
	c, err := NewCanvasRasterizer()
	require.NoError(t, err)
	l, err := BuildLayout(doc, layout.EnabledInOrder())
	require.NoError(t, err)
	img, err := c.Rasterize(context.Background(), l, Scale)
	require.NoError(t, err)
	return l, img
}

func TestCanvasRasterizeScalesAndPaintsAccent(t *testing.T) {
	doc := invoice.NewDocument()
	l, img := rasterize(t, doc, sections.DefaultLayout())

	assert.Equal(t, image.Pt(l.Width*Scale, l.Height*Scale), img.Bounds().Size())

	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})

	accent := color.NRGBAModel.Convert(img.At(800, 100)).(color.NRGBA)
	assert.Equal(t, color.NRGBA{R: 0x63, G: 0x66, B: 0xf1, A: 0xff}, accent)
}

func TestCanvasRasterizeDrawsLogo(t *testing.T) {
	doc := invoice.NewDocument()
	require.NoError(t, doc.SetLogo(logoURI(t)))

	_, img := rasterize(t, doc, sections.DefaultLayout())

	// The logo sits in the 56x56 frame at (72,72) of the header; a 2:1 logo
	// is fitted and centred vertically.
	center := color.NRGBAModel.Convert(img.At((Margin+32+28)*Scale, (Margin+32+28)*Scale)).(color.NRGBA)
	assert.Equal(t, uint8(0xff), center.R)
	assert.Less(t, center.B, uint8(0x40))
}

func TestCanvasRasterizeEmptyLayout(t *testing.T) {
	layout := sections.DefaultLayout()
	for _, k := range sections.Kinds() {
		require.NoError(t, layout.SetEnabled(k, false))
	}
	l, img := rasterize(t, invoice.NewDocument(), layout)
	assert.Equal(t, image.Pt(PageWidth*Scale, l.Height*Scale), img.Bounds().Size())
}

func TestCanvasRasterizeRejectsBrokenLogo(t *testing.T) {
	c, err := NewCanvasRasterizer()
	require.NoError(t, err)
	l := Layout{Width: 100, Height: 100, Blocks: []Block{{
		Kind: sections.KindHeader,
		Ops:  []Op{Picture{W: 10, H: 10, URI: "data:image/png;base64,bm90IGFuIGltYWdl"}},
	}}}

	_, err = c.Rasterize(context.Background(), l, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode logo")
}

func TestCanvasRasterizeRejectsOversizedLayout(t *testing.T) {
	c, err := NewCanvasRasterizer()
	require.NoError(t, err)

	_, err = c.Rasterize(context.Background(), Layout{Width: PageWidth, Height: 50_000}, Scale)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = c.Rasterize(context.Background(), Layout{Width: 1 << 20, Height: 1 << 20}, 1)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCanvasRasterizeHonoursCancellation(t *testing.T) {
	c, err := NewCanvasRasterizer()
	require.NoError(t, err)
	l, err := BuildLayout(invoice.NewDocument(), sections.DefaultLayout().EnabledInOrder())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Rasterize(ctx, l, Scale)
	assert.ErrorIs(t, err, context.Canceled)
}

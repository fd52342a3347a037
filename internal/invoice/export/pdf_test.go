package export

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func TestPageSize(t *testing.T) {
	imgH, pageH := PageSize(image.Pt(1600, 800))
	assert.InDelta(t, 105.0, imgH, 0.001)
	assert.InDelta(t, PageHeightMM, pageH, 0.001)

	imgH, pageH = PageSize(image.Pt(1600, 4000))
	assert.InDelta(t, 525.0, imgH, 0.001)
	assert.InDelta(t, 525.0, pageH, 0.001)
}

func TestAssemblePDF(t *testing.T) {
	data, err := AssemblePDF(solid(160, 80))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data), "/Type /Page")
	assert.True(t, bytes.HasSuffix(bytes.TrimSpace(data), []byte("%%EOF")))
}

func TestAssemblePDFRejectsEmptyBitmap(t *testing.T) {
	_, err := AssemblePDF(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}

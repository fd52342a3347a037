package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/jung-kurt/gofpdf"
)

// Page geometry of the exported document, in millimetres.
const (
	PageWidthMM  = 210.0
	PageHeightMM = 297.0
)

// PageSize returns the page for a bitmap of the given pixel size: A4 width,
// and an image height scaled by the bitmap's aspect ratio. Tall invoices get
// a single taller page rather than being split.
func PageSize(px image.Point) (imgHeightMM, pageHeightMM float64) {
	imgHeightMM = PageWidthMM * float64(px.Y) / float64(px.X)
	return imgHeightMM, max(PageHeightMM, imgHeightMM)
}

// AssemblePDF embeds img as the only content of a one-page PDF.
func AssemblePDF(img image.Image) ([]byte, error) {
	size := img.Bounds().Size()
	if size.X == 0 || size.Y == 0 {
		return nil, fmt.Errorf("export: empty bitmap")
	}
	var raster bytes.Buffer
	if err := png.Encode(&raster, img); err != nil {
		return nil, fmt.Errorf("export: encode png: %w", err)
	}

	imgH, pageH := PageSize(size)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: PageWidthMM, Ht: pageH},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("FacturaPro", true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("invoice", opts, &raster)
	pdf.ImageOptions("invoice", 0, 0, PageWidthMM, imgH, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("export: write pdf: %w", err)
	}
	return out.Bytes(), nil
}

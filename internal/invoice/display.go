package invoice

import "fmt"

// Fallback and caption text shared by the screen and export renderers.
const (
	PlaceholderCompany  = "Tu Empresa"
	PlaceholderTaxID    = "0501-XXXX-XXXXXX"
	InvoiceTitle        = "FACTURA"
	ClientHeading       = "Facturar a:"
	NotesHeading        = "Términos y Condiciones"
	VerificationCaption = "Validado por SAR"
)

// SampleClient fills the client block while a template is being designed.
var SampleClient = ClientInfo{
	Name:    "Empresa Cliente S.A. de C.V.",
	TaxID:   "0801-1990-234567",
	Address: "Tegucigalpa, Honduras",
}

// PlaceholderClient fills blank client fields of a real document.
var PlaceholderClient = ClientInfo{
	Name:    "Empresa Cliente S.A.",
	TaxID:   "0801-XXXX-XXXXXX",
	Address: "Honduras",
}

// DisplayName is the company name or its placeholder.
func (d *Document) DisplayName() string {
	if d.CompanyName == "" {
		return PlaceholderCompany
	}
	return d.CompanyName
}

// DisplayTaxID is the "RTN: ..." caption of the header.
func (d *Document) DisplayTaxID() string {
	if d.TaxID == "" {
		return "RTN: " + PlaceholderTaxID
	}
	return "RTN: " + d.TaxID
}

// DisplayClient returns the client with blank fields replaced by placeholders.
func (d *Document) DisplayClient() ClientInfo {
	c := d.Client
	if c.Name == "" {
		c.Name = PlaceholderClient.Name
	}
	if c.TaxID == "" {
		c.TaxID = PlaceholderClient.TaxID
	}
	if c.Address == "" {
		c.Address = PlaceholderClient.Address
	}
	return c
}

// ItemCode is the synthetic row label shown next to item i (0-based). It has
// no meaning beyond display.
func ItemCode(i int) string {
	return fmt.Sprintf("PRD-%03d", i+1)
}

// GlyphSize is the side of PlaceholderGlyph in cells.
const GlyphSize = 9

// PlaceholderGlyph returns the fixed scan-code-like pattern drawn by the
// verification section. It encodes nothing.
func PlaceholderGlyph() [GlyphSize][GlyphSize]bool {
	var g [GlyphSize][GlyphSize]bool
	finder := func(row, col int) {
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				g[row+r][col+c] = r != 1 || c != 1
			}
		}
	}
	finder(0, 0)
	finder(0, GlyphSize-3)
	finder(GlyphSize-3, 0)
	for i := 4; i < GlyphSize; i += 2 {
		g[4][i-2] = true
		g[i][4] = true
	}
	g[GlyphSize-1][GlyphSize-1] = true
	return g
}

// Package export turns an invoice document into a downloadable PDF. It
// builds its own fixed-width layout, rasterizes it at 2x and embeds the
// bitmap in an A4-wide page.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"iter"
	"strconv"
	"strings"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/sections"
	"github.com/facturapro/facturapro/internal/money"
)

// Layout geometry in CSS pixels at scale 1.
const (
	PageWidth = 800
	Margin    = 40
	inner     = PageWidth - 2*Margin
	rowHeight = 36
)

// MaxRasterPixels bounds the bitmap of a single export. A full invoice of
// invoice.MaxLineItems rows fits at Scale; very long notes on top of that
// may not.
const MaxRasterPixels = 64_000_000

// ErrTooLarge reports a layout whose bitmap would exceed MaxRasterPixels.
var ErrTooLarge = errors.New("export: page too large")

var (
	white     = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	ink       = color.NRGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
	muted     = color.NRGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}
	rule      = color.NRGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}
	band      = color.NRGBA{R: 0xf3, G: 0xf4, B: 0xf6, A: 0xff}
	logoFrame = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x33}
)

// Align anchors a text run at its X coordinate.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Op is one drawing instruction. Coordinates are relative to the block.
type Op interface {
	op()
}

// Box fills a rectangle, optionally with rounded corners.
type Box struct {
	X, Y, W, H int
	Radius     int
	Fill       color.NRGBA
}

// Text draws a single line; Y is the baseline.
type Text struct {
	X, Y   int
	Size   float64
	Bold   bool
	Italic bool
	Align  Align
	Color  color.NRGBA
	Value  string
}

// Picture draws an image data URI fitted into its rectangle.
type Picture struct {
	X, Y, W, H int
	URI        string
}

// Placeholder draws the building glyph used when there is no logo.
type Placeholder struct {
	X, Y, Size int
	Color      color.NRGBA
}

// Glyph draws the verification placeholder pattern.
type Glyph struct {
	X, Y, Cell int
	Color      color.NRGBA
	Cells      [invoice.GlyphSize][invoice.GlyphSize]bool
}

func (Box) op()         {}
func (Text) op()        {}
func (Picture) op()     {}
func (Placeholder) op() {}
func (Glyph) op()       {}

// boxes expands the office-block pictogram into plain boxes.
func (o Placeholder) boxes() []Box {
	unit := max(o.Size/8, 1)
	hole := color.NRGBA{R: o.Color.R / 2, G: o.Color.G / 2, B: o.Color.B / 2, A: 0x66}
	out := []Box{{X: o.X + unit, Y: o.Y, W: o.Size - 2*unit, H: o.Size, Radius: unit / 2, Fill: o.Color}}
	for row := 0; row < 3; row++ {
		for col := 0; col < 2; col++ {
			out = append(out, Box{X: o.X + 2*unit + col*3*unit, Y: o.Y + unit + row*2*unit, W: unit, H: unit, Fill: hole})
		}
	}
	return append(out, Box{X: o.X + o.Size/2 - unit/2, Y: o.Y + o.Size - 2*unit, W: unit, H: 2 * unit, Fill: hole})
}

// boxes expands the pattern into one box per set cell.
func (o Glyph) boxes() []Box {
	var out []Box
	for r, row := range o.Cells {
		for c, on := range row {
			if on {
				out = append(out, Box{X: o.X + c*o.Cell, Y: o.Y + r*o.Cell, W: o.Cell, H: o.Cell, Fill: o.Color})
			}
		}
	}
	return out
}

// Block is the drawing of one section.
type Block struct {
	Kind   sections.Kind
	Top    int
	Height int
	Ops    []Op
}

// Layout is the static, print-oriented description of an invoice.
type Layout struct {
	Width  int
	Height int
	Blocks []Block
}

// BuildLayout stacks the enabled sections top to bottom. An empty sequence
// yields a blank page of margins only.
func BuildLayout(doc *invoice.Document, enabled iter.Seq[sections.Section]) (Layout, error) {
	accent, err := ParseHexColor(doc.AccentColor)
	if err != nil {
		return Layout{}, err
	}
	v := &layoutVisitor{doc: doc, accent: accent}
	blocks, err := sections.Collect(enabled, sections.Visitor[Block](v))
	if err != nil {
		return Layout{}, err
	}
	y := Margin
	for i := range blocks {
		blocks[i].Top = y
		y += blocks[i].Height
	}
	return Layout{Width: PageWidth, Height: y + Margin, Blocks: blocks}, nil
}

// CheckSize fails with ErrTooLarge when l painted at scale exceeds
// MaxRasterPixels.
func (l Layout) CheckSize(scale int) error {
	px := int64(l.Width) * int64(l.Height) * int64(scale) * int64(scale)
	if px > MaxRasterPixels {
		return fmt.Errorf("%w: %dx%d at %dx is %d pixels", ErrTooLarge, l.Width, l.Height, scale, px)
	}
	return nil
}

// ParseHexColor converts #rrggbb to an opaque color.
func ParseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) != 7 || hex[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("export: invalid color %q", hex)
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("export: invalid color %q: %w", hex, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

type layoutVisitor struct {
	doc    *invoice.Document
	accent color.NRGBA
}

func (v *layoutVisitor) Header() Block {
	ops := []Op{
		Box{X: Margin, Y: 0, W: inner, H: 120, Radius: 12, Fill: v.accent},
		Box{X: Margin + 28, Y: 28, W: 64, H: 64, Radius: 10, Fill: logoFrame},
	}
	if v.doc.Logo != "" {
		ops = append(ops, Picture{X: Margin + 32, Y: 32, W: 56, H: 56, URI: v.doc.Logo})
	} else {
		ops = append(ops, Placeholder{X: Margin + 44, Y: 44, Size: 32, Color: white})
	}
	ops = append(ops,
		Text{X: Margin + 112, Y: 58, Size: 24, Bold: true, Color: white, Value: v.doc.DisplayName()},
		Text{X: Margin + 112, Y: 84, Size: 13, Color: white, Value: v.doc.DisplayTaxID()},
		Text{X: PageWidth - Margin - 28, Y: 70, Size: 28, Bold: true, Align: AlignRight, Color: white, Value: invoice.InvoiceTitle},
	)
	return Block{Kind: sections.KindHeader, Height: 144, Ops: ops}
}

func (v *layoutVisitor) Client() Block {
	c := v.doc.DisplayClient()
	return Block{Kind: sections.KindClient, Height: 112, Ops: []Op{
		Text{X: Margin, Y: 28, Size: 12, Color: muted, Value: invoice.ClientHeading},
		Text{X: Margin, Y: 54, Size: 16, Bold: true, Color: ink, Value: c.Name},
		Text{X: Margin, Y: 76, Size: 13, Color: muted, Value: "RTN: " + c.TaxID},
		Text{X: Margin, Y: 96, Size: 13, Color: muted, Value: c.Address},
	}}
}

// Column anchors of the items table.
const (
	colCode  = Margin + 12
	colName  = Margin + 120
	colQty   = Margin + 520
	colPrice = PageWidth - Margin - 12
)

func (v *layoutVisitor) Items() Block {
	ops := []Op{
		Box{X: Margin, Y: 8, W: inner, H: rowHeight, Radius: 6, Fill: band},
		Text{X: colCode, Y: 31, Size: 12, Bold: true, Color: muted, Value: "Código"},
		Text{X: colName, Y: 31, Size: 12, Bold: true, Color: muted, Value: "Descripción"},
		Text{X: colQty, Y: 31, Size: 12, Bold: true, Align: AlignRight, Color: muted, Value: "Cant."},
		Text{X: colPrice, Y: 31, Size: 12, Bold: true, Align: AlignRight, Color: muted, Value: "Precio"},
	}
	y := 8 + rowHeight
	if len(v.doc.Items) == 0 {
		ops = append(ops, Text{X: colName, Y: y + 23, Size: 13, Italic: true, Color: muted, Value: "Sin productos"})
		y += rowHeight
	}
	for i, li := range v.doc.Items {
		ops = append(ops,
			Text{X: colCode, Y: y + 23, Size: 12, Color: muted, Value: invoice.ItemCode(i)},
			Text{X: colName, Y: y + 23, Size: 13, Color: ink, Value: truncate(li.Name, 52)},
			Text{X: colQty, Y: y + 23, Size: 13, Align: AlignRight, Color: ink, Value: "1"},
			Text{X: colPrice, Y: y + 23, Size: 13, Align: AlignRight, Color: ink, Value: v.doc.Format(li.Price)},
			Box{X: Margin, Y: y + rowHeight - 1, W: inner, H: 1, Fill: rule},
		)
		y += rowHeight
	}
	return Block{Kind: sections.KindItems, Height: y + 16, Ops: ops}
}

func (v *layoutVisitor) Totals() Block {
	t := v.doc.Totals()
	const labelX = PageWidth - Margin - 280
	const valueX = PageWidth - Margin - 12
	return Block{Kind: sections.KindTotals, Height: 120, Ops: []Op{
		Text{X: labelX, Y: 26, Size: 13, Color: muted, Value: "Subtotal"},
		Text{X: valueX, Y: 26, Size: 13, Align: AlignRight, Color: ink, Value: v.doc.Format(t.Subtotal)},
		Text{X: labelX, Y: 54, Size: 13, Color: muted, Value: money.TaxLabel()},
		Text{X: valueX, Y: 54, Size: 13, Align: AlignRight, Color: ink, Value: v.doc.Format(t.Tax)},
		Box{X: labelX, Y: 68, W: valueX - labelX + 12, H: 2, Fill: rule},
		Text{X: labelX, Y: 100, Size: 18, Bold: true, Color: v.accent, Value: "TOTAL"},
		Text{X: valueX, Y: 100, Size: 18, Bold: true, Align: AlignRight, Color: v.accent, Value: v.doc.Format(t.Total)},
	}}
}

// notesLineChars approximates how many 12px characters fit the inner width.
const notesLineChars = 100

func (v *layoutVisitor) Notes() Block {
	if strings.TrimSpace(v.doc.Notes) == "" {
		return Block{Kind: sections.KindNotes}
	}
	ops := []Op{
		Text{X: Margin, Y: 28, Size: 13, Bold: true, Color: ink, Value: invoice.NotesHeading},
	}
	y := 50
	for _, line := range wrap(v.doc.Notes, notesLineChars) {
		ops = append(ops, Text{X: Margin, Y: y, Size: 12, Italic: true, Color: muted, Value: line})
		y += 18
	}
	return Block{Kind: sections.KindNotes, Height: y + 8, Ops: ops}
}

func (v *layoutVisitor) Verification() Block {
	const cell = 10
	return Block{Kind: sections.KindVerification, Height: 130, Ops: []Op{
		Box{X: Margin, Y: 12, W: 106, H: 106, Radius: 8, Fill: band},
		Glyph{X: Margin + 8, Y: 20, Cell: cell, Color: ink, Cells: invoice.PlaceholderGlyph()},
		Text{X: Margin + 126, Y: 70, Size: 13, Color: muted, Value: invoice.VerificationCaption},
	}}
}

// wrap splits text on whitespace into lines of at most width runes. Words
// longer than width are hard-split.
func wrap(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		var line []rune
		for _, word := range strings.Fields(para) {
			w := []rune(word)
			for len(w) > width {
				if len(line) > 0 {
					lines = append(lines, string(line))
					line = nil
				}
				lines = append(lines, string(w[:width]))
				w = w[width:]
			}
			switch {
			case len(line) == 0:
				line = w
			case len(line)+1+len(w) <= width:
				line = append(append(line, ' '), w...)
			default:
				lines = append(lines, string(line))
				line = w
			}
		}
		lines = append(lines, string(line))
	}
	return lines
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package preview

import (
	"bytes"
	"fmt"
	"html/template"
	"iter"
	"strings"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/sections"
	"github.com/facturapro/facturapro/internal/money"
	"github.com/facturapro/facturapro/web"
)

// Renderer turns documents into preview trees and HTML fragments.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded preview fragments.
func NewRenderer() (*Renderer, error) {
	tpl, err := template.New("preview").ParseFS(web.Templates, "templates/preview/*.html")
	if err != nil {
		return nil, fmt.Errorf("preview: parse templates: %w", err)
	}
	return &Renderer{templates: tpl}, nil
}

// Build projects doc onto the enabled sections, in order.
func Build(doc *invoice.Document, enabled iter.Seq[sections.Section], mode Mode) (Tree, error) {
	v := &visitor{doc: doc, mode: mode}
	nodes, err := sections.Collect(enabled, sections.Visitor[Node](v))
	if err != nil {
		return Tree{}, err
	}
	return Tree{
		AccentColor: doc.AccentColor,
		Nodes:       nodes,
		Empty:       len(nodes) == 0,
	}, nil
}

// Render builds the tree and executes the preview fragment.
func (r *Renderer) Render(doc *invoice.Document, enabled iter.Seq[sections.Section], mode Mode) (template.HTML, error) {
	tree, err := Build(doc, enabled, mode)
	if err != nil {
		return "", err
	}
	return r.HTML(tree)
}

// HTML executes the preview fragment for tree.
func (r *Renderer) HTML(tree Tree) (template.HTML, error) {
	if r == nil {
		return "", fmt.Errorf("preview: renderer not initialised")
	}
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "preview/invoice", tree); err != nil {
		return "", fmt.Errorf("preview: execute: %w", err)
	}
	return template.HTML(buf.String()), nil
}

type visitor struct {
	doc  *invoice.Document
	mode Mode
}

func (v *visitor) Header() Node {
	h := &Header{
		// AccentColor is a validated 6-digit hex value.
		Accent:      template.CSS("background-color: " + v.doc.AccentColor),
		Title:       invoice.InvoiceTitle,
		CompanyName: v.doc.DisplayName(),
		TaxID:       v.doc.DisplayTaxID(),
	}
	if v.doc.Logo != "" {
		// Logo is validated as an image data URI by the document setter.
		h.Logo = template.URL(v.doc.Logo)
		h.HasLogo = true
	}
	return Node{Kind: sections.KindHeader, Header: h}
}

func (v *visitor) Client() Node {
	c := invoice.SampleClient
	if v.mode == ModeDocument {
		c = v.doc.DisplayClient()
	}
	return Node{Kind: sections.KindClient, Client: &Client{
		Heading: invoice.ClientHeading,
		Name:    c.Name,
		TaxID:   "RTN: " + c.TaxID,
		Address: c.Address,
		Sample:  v.mode == ModeEditor,
	}}
}

func (v *visitor) Items() Node {
	items := &Items{Empty: len(v.doc.Items) == 0}
	for i, li := range v.doc.Items {
		items.Rows = append(items.Rows, ItemRow{
			Code:     invoice.ItemCode(i),
			Name:     li.Name,
			Quantity: 1,
			Price:    v.doc.Format(li.Price),
		})
	}
	return Node{Kind: sections.KindItems, Items: items}
}

func (v *visitor) Totals() Node {
	t := v.doc.Totals()
	return Node{Kind: sections.KindTotals, Totals: &Totals{
		AccentText: template.CSS("color: " + v.doc.AccentColor),
		Subtotal:   v.doc.Format(t.Subtotal),
		TaxLabel:   money.TaxLabel(),
		Tax:        v.doc.Format(t.Tax),
		Total:      v.doc.Format(t.Total),
	}}
}

func (v *visitor) Notes() Node {
	return Node{Kind: sections.KindNotes, Notes: &Notes{
		Heading: invoice.NotesHeading,
		Text:    v.doc.Notes,
		Empty:   strings.TrimSpace(v.doc.Notes) == "",
	}}
}

func (v *visitor) Verification() Node {
	glyph := invoice.PlaceholderGlyph()
	cells := make([][]bool, len(glyph))
	for i := range glyph {
		cells[i] = glyph[i][:]
	}
	return Node{Kind: sections.KindVerification, Verification: &Verification{
		Caption: invoice.VerificationCaption,
		Cells:   cells,
	}}
}

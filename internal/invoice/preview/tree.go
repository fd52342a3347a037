// Package preview renders the live, on-screen invoice preview. It is pure:
// the same document and layout always produce the same tree, so the editor
// can call it after every keystroke.
package preview

import (
	"html/template"

	"github.com/facturapro/facturapro/internal/invoice/sections"
)

// Mode selects what the client block shows.
type Mode int

const (
	// ModeEditor shows a fixed sample client while a template is designed.
	ModeEditor Mode = iota
	// ModeDocument shows the document's own client information.
	ModeDocument
)

// Tree is the rendered preview. Empty is true when no section is enabled.
type Tree struct {
	AccentColor string
	Nodes       []Node
	Empty       bool
}

// Node is one section of the tree. Exactly one payload pointer is set,
// matching Kind.
type Node struct {
	Kind         sections.Kind
	Header       *Header
	Client       *Client
	Items        *Items
	Totals       *Totals
	Notes        *Notes
	Verification *Verification
}

type Header struct {
	Accent      template.CSS
	Logo        template.URL
	HasLogo     bool
	Title       string
	CompanyName string
	TaxID       string
}

type Client struct {
	Heading string
	Name    string
	TaxID   string
	Address string
	Sample  bool
}

type ItemRow struct {
	Code     string
	Name     string
	Quantity int
	Price    string
}

type Items struct {
	Rows  []ItemRow
	Empty bool
}

type Totals struct {
	AccentText template.CSS
	Subtotal   string
	TaxLabel   string
	Tax        string
	Total      string
}

// Notes is blank when the document has no notes; the section then renders
// nothing, as in the exported PDF.
type Notes struct {
	Heading string
	Text    string
	Empty   bool
}

type Verification struct {
	Caption string
	Cells   [][]bool
}

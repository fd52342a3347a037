// Package invoice holds the invoice document aggregate consumed by the screen
// and export renderers, together with its persistence mapping.
package invoice

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturapro/facturapro/internal/money"
)

const (
	// DefaultTemplateID is the only template the editor produces.
	DefaultTemplateID = "default"
	// DefaultAccentColor is the editor's starting brand color.
	DefaultAccentColor = "#6366f1"
	// DefaultItemName labels items created by AddLineItem.
	DefaultItemName = "Nuevo Producto"
	// DefaultNotes is the payment terms text shown in the notes section.
	DefaultNotes = "Esta factura vence a los 30 días de la fecha de emisión. Favor realizar el pago mediante transferencia bancaria."
	// UnnamedCompany is persisted when an invoice is saved without a company name.
	UnnamedCompany = "Sin Nombre"
)

// LineItem is a named, priced entry of the item list.
type LineItem struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Amount implements money.Priced.
func (li LineItem) Amount() decimal.Decimal {
	return li.Price
}

// ClientInfo identifies the billed party.
type ClientInfo struct {
	Name    string `json:"name"`
	TaxID   string `json:"rtn,omitempty"`
	Address string `json:"address,omitempty"`
}

// IsZero reports whether no client field is set.
func (c ClientInfo) IsZero() bool {
	return c.Name == "" && c.TaxID == "" && c.Address == ""
}

// Document is the invoice aggregate. Totals are derived from Items on every
// read and never stored on the document.
type Document struct {
	ID          uuid.UUID      `json:"id"`
	OwnerID     string         `json:"ownerId,omitempty"`
	TemplateID  string         `json:"templateId"`
	CompanyName string         `json:"companyName"`
	TaxID       string         `json:"rtn,omitempty"`
	AccentColor string         `json:"color"`
	Currency    money.Currency `json:"currency"`
	Logo        string         `json:"logo,omitempty"`
	Items       []LineItem     `json:"items"`
	Notes       string         `json:"notes"`
	Client      ClientInfo     `json:"clientInfo"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// NewDocument returns the editor's starting document.
func NewDocument() *Document {
	return &Document{
		TemplateID:  DefaultTemplateID,
		AccentColor: DefaultAccentColor,
		Currency:    money.HNL,
		Items: []LineItem{
			{ID: uuid.NewString(), Name: "Producto ejemplo 1", Price: decimal.NewFromInt(150)},
			{ID: uuid.NewString(), Name: "Producto ejemplo 2", Price: decimal.NewFromInt(250)},
		},
		Notes: DefaultNotes,
	}
}

// Totals recomputes subtotal, tax and total from the current items.
func (d *Document) Totals() money.Totals {
	return money.Calculate(d.Items)
}

// Persisted reports whether the document has been assigned an id.
func (d *Document) Persisted() bool {
	return d.ID != uuid.Nil
}

// Clone returns a deep copy safe to hand to another goroutine.
func (d *Document) Clone() *Document {
	c := *d
	c.Items = slices.Clone(d.Items)
	return &c
}

// Format renders amount in the document's currency.
func (d *Document) Format(amount decimal.Decimal) string {
	return d.Currency.Format(amount)
}

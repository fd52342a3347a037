package invoice

import (
	"time"

	"github.com/google/uuid"

	"github.com/facturapro/facturapro/internal/money"
)

// Record is the persisted shape of an invoice.
type Record struct {
	ID          uuid.UUID
	OwnerID     string
	TemplateID  string
	Color       string
	Currency    string
	CompanyName string
	ClientInfo  ClientInfo
	Items       []LineItem
	Totals      money.Totals
	Notes       string
	CreatedAt   time.Time
}

// ToRecord snapshots the document, including its current totals, for the
// store. The owner is the authenticated identity, never a document field.
func ToRecord(ownerID string, d *Document) Record {
	name := d.CompanyName
	if name == "" {
		name = UnnamedCompany
	}
	template := d.TemplateID
	if template == "" {
		template = DefaultTemplateID
	}
	return Record{
		ID:          d.ID,
		OwnerID:     ownerID,
		TemplateID:  template,
		Color:       d.AccentColor,
		Currency:    d.Currency.String(),
		CompanyName: name,
		ClientInfo:  d.Client,
		Items:       append([]LineItem(nil), d.Items...),
		Totals:      d.Totals(),
		Notes:       d.Notes,
		CreatedAt:   d.CreatedAt,
	}
}

// FromRecord rebuilds a document from storage. Items are the source of
// truth: reconciled is false when the stored totals disagree with the totals
// derived from them.
func FromRecord(r Record) (doc *Document, reconciled bool, err error) {
	doc = &Document{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		TemplateID:  r.TemplateID,
		CompanyName: r.CompanyName,
		AccentColor: r.Color,
		Currency:    money.Currency(r.Currency),
		Items:       append([]LineItem(nil), r.Items...),
		Notes:       r.Notes,
		Client:      r.ClientInfo,
		CreatedAt:   r.CreatedAt,
	}
	if err := doc.Validate(); err != nil {
		return nil, false, err
	}
	return doc, doc.Totals().Equal(r.Totals), nil
}

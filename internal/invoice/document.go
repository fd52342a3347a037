package invoice

import (
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturapro/facturapro/internal/money"
)

// Line item fields accepted by UpdateLineItem.
const (
	FieldName  = "name"
	FieldPrice = "price"
)

const maxTextLen = 200

// MaxLineItems caps the items of one invoice.
const MaxLineItems = 500

var (
	validate   = validator.New(validator.WithRequiredStructEnabled())
	logoPrefix = regexp.MustCompile(`^data:image/(png|jpeg|gif|webp);base64,`)
)

// SetCompanyName replaces the issuing company's name.
func (d *Document) SetCompanyName(name string) error {
	name = strings.TrimSpace(name)
	if err := validate.Var(name, "max=200"); err != nil {
		return invalid("companyName", "at most %d characters", maxTextLen)
	}
	d.CompanyName = name
	return nil
}

// SetTaxID replaces the issuer's RTN. Digit-only input is grouped 4-4-6.
func (d *Document) SetTaxID(rtn string) error {
	formatted := FormatRTN(rtn)
	if err := validate.Var(formatted, "max=32"); err != nil {
		return invalid("rtn", "too long")
	}
	d.TaxID = formatted
	return nil
}

// SetLogo stores an already-decoded image as a data URI.
func (d *Document) SetLogo(dataURI string) error {
	if !logoPrefix.MatchString(dataURI) || validate.Var(dataURI, "datauri") != nil {
		return invalid("logo", "expected a base64 png, jpeg, gif or webp data URI")
	}
	d.Logo = dataURI
	return nil
}

// ClearLogo removes the logo; renderers fall back to a placeholder glyph.
func (d *Document) ClearLogo() {
	d.Logo = ""
}

// SetAccentColor accepts a 6-digit hex color such as #6366f1.
func (d *Document) SetAccentColor(color string) error {
	color = strings.ToLower(strings.TrimSpace(color))
	if err := validate.Var(color, "required,len=7,hexcolor"); err != nil {
		return invalid("color", "expected a 6-digit hex color, got %q", color)
	}
	d.AccentColor = color
	return nil
}

// SetCurrency switches the display currency. Prices are relabelled, not
// converted.
func (d *Document) SetCurrency(code string) error {
	c, err := money.ParseCurrency(code)
	if err != nil {
		return invalid("currency", "%q is not one of HNL, USD", code)
	}
	d.Currency = c
	return nil
}

// SetNotes replaces the free-text notes.
func (d *Document) SetNotes(notes string) error {
	if err := validate.Var(notes, "max=2000"); err != nil {
		return invalid("notes", "at most 2000 characters")
	}
	d.Notes = notes
	return nil
}

// SetClient replaces the billed party.
func (d *Document) SetClient(c ClientInfo) error {
	c.Name = strings.TrimSpace(c.Name)
	c.TaxID = FormatRTN(c.TaxID)
	c.Address = strings.TrimSpace(c.Address)
	if len(c.Name) > maxTextLen || len(c.Address) > maxTextLen {
		return invalid("clientInfo", "at most %d characters per field", maxTextLen)
	}
	d.Client = c
	return nil
}

// AddLineItem appends a default item with a fresh id and returns it.
func (d *Document) AddLineItem() (LineItem, error) {
	if len(d.Items) >= MaxLineItems {
		return LineItem{}, invalid("items", "at most %d items per invoice", MaxLineItems)
	}
	item := LineItem{ID: uuid.NewString(), Name: DefaultItemName, Price: decimal.Zero}
	d.Items = append(d.Items, item)
	return item, nil
}

// UpdateLineItem edits the name or price of item id. An empty price means 0.
func (d *Document) UpdateLineItem(id, field, value string) error {
	i := d.itemIndex(id)
	if i < 0 {
		return ErrUnknownItem
	}
	switch field {
	case FieldName:
		if len(value) > maxTextLen {
			return invalid("name", "at most %d characters", maxTextLen)
		}
		d.Items[i].Name = value
	case FieldPrice:
		price, err := ParsePrice(value)
		if err != nil {
			return err
		}
		d.Items[i].Price = price
	default:
		return invalid("field", "%q is not editable", field)
	}
	return nil
}

// RemoveLineItem deletes item id.
func (d *Document) RemoveLineItem(id string) error {
	i := d.itemIndex(id)
	if i < 0 {
		return ErrUnknownItem
	}
	d.Items = slices.Delete(d.Items, i, i+1)
	return nil
}

func (d *Document) itemIndex(id string) int {
	return slices.IndexFunc(d.Items, func(li LineItem) bool { return li.ID == id })
}

// ParsePrice validates a non-negative decimal price.
func ParsePrice(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	price, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, invalid("price", "%q is not a number", value)
	}
	if price.IsNegative() {
		return decimal.Zero, invalid("price", "must not be negative")
	}
	return price, nil
}

// Validate checks every invariant of a document built outside the setters,
// such as one decoded from storage.
func (d *Document) Validate() error {
	if !d.Currency.Valid() {
		return invalid("currency", "%q is not one of HNL, USD", d.Currency)
	}
	if err := validate.Var(d.AccentColor, "required,len=7,hexcolor"); err != nil {
		return invalid("color", "expected a 6-digit hex color, got %q", d.AccentColor)
	}
	if d.Logo != "" && !logoPrefix.MatchString(d.Logo) {
		return invalid("logo", "expected an image data URI")
	}
	if len(d.Items) > MaxLineItems {
		return invalid("items", "at most %d items per invoice", MaxLineItems)
	}
	seen := make(map[string]bool, len(d.Items))
	for _, li := range d.Items {
		if li.ID == "" || seen[li.ID] {
			return invalid("items", "duplicate or empty id %q", li.ID)
		}
		seen[li.ID] = true
		if li.Price.IsNegative() {
			return invalid("price", "must not be negative")
		}
	}
	return nil
}

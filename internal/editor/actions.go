package editor

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/sections"
	"github.com/facturapro/facturapro/internal/platform/httpx"
)

// Editor actions accepted on POST /editor/action/{action}.
const (
	ActionCompany       = "company"
	ActionTaxID         = "rtn"
	ActionColor         = "color"
	ActionCurrency      = "currency"
	ActionNotes         = "notes"
	ActionClient        = "client"
	ActionItemAdd       = "item-add"
	ActionItemUpdate    = "item-update"
	ActionItemRemove    = "item-remove"
	ActionSectionToggle = "section-toggle"
	ActionSectionMove   = "section-move"
	ActionLogoUpload    = "logo"
	ActionLogoRemove    = "logo-remove"
	ActionReset         = "reset"
)

// ErrUnknownAction rejects an action name the editor does not know.
var ErrUnknownAction = fmt.Errorf("%w: unknown editor action", httpx.ErrValidation)

// Apply performs one form-driven edit on d. Logo uploads carry a file and
// are handled by the HTTP layer before reaching the document.
func Apply(d *Draft, action string, form url.Values) error {
	doc := d.Document
	switch action {
	case ActionCompany:
		return doc.SetCompanyName(form.Get("company_name"))
	case ActionTaxID:
		return doc.SetTaxID(form.Get("rtn"))
	case ActionColor:
		return doc.SetAccentColor(form.Get("color"))
	case ActionCurrency:
		return doc.SetCurrency(form.Get("currency"))
	case ActionNotes:
		return doc.SetNotes(form.Get("notes"))
	case ActionClient:
		return doc.SetClient(invoice.ClientInfo{
			Name:    form.Get("client_name"),
			TaxID:   form.Get("client_rtn"),
			Address: form.Get("client_address"),
		})
	case ActionItemAdd:
		_, err := doc.AddLineItem()
		return err
	case ActionItemUpdate:
		return doc.UpdateLineItem(form.Get("item_id"), form.Get("field"), form.Get("value"))
	case ActionItemRemove:
		return doc.RemoveLineItem(form.Get("item_id"))
	case ActionSectionToggle:
		kind, err := sections.ParseKind(form.Get("section"))
		if err != nil {
			return err
		}
		return d.Layout.Toggle(kind)
	case ActionSectionMove:
		return moveSection(d.Layout, form)
	case ActionLogoRemove:
		doc.ClearLogo()
		return nil
	case ActionReset:
		fresh := NewDraft()
		d.Document, d.Layout = fresh.Document, fresh.Layout
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownAction, action)
	}
}

// moveSection handles both drag and drop (section dropped onto target) and
// the keyboard up/down buttons (direction relative to the neighbour).
func moveSection(l *sections.Layout, form url.Values) error {
	moved, err := sections.ParseKind(form.Get("section"))
	if err != nil {
		return err
	}
	if target := strings.TrimSpace(form.Get("target")); target != "" {
		kind, err := sections.ParseKind(target)
		if err != nil {
			return err
		}
		return l.Reorder(moved, kind)
	}
	order := l.Kinds()
	i := slices.Index(order, moved)
	switch form.Get("direction") {
	case "up":
		if i <= 0 {
			return nil
		}
		return l.Reorder(moved, order[i-1])
	case "down":
		if i < 0 || i >= len(order)-1 {
			return nil
		}
		return l.Reorder(moved, order[i+1])
	default:
		return fmt.Errorf("%w: section move needs a target or direction", httpx.ErrValidation)
	}
}

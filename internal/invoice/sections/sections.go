// Package sections models the fixed, toggleable and orderable blocks that
// compose an invoice. Both renderers walk EnabledInOrder, so placement is
// decided here and nowhere else.
package sections

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/facturapro/facturapro/internal/platform/httpx"
)

// Kind identifies one of the six section kinds.
type Kind string

const (
	KindHeader       Kind = "header"
	KindClient       Kind = "client"
	KindItems        Kind = "items"
	KindTotals       Kind = "totals"
	KindNotes        Kind = "notes"
	KindVerification Kind = "verification"
)

// ErrUnknownSection is returned for ids outside the closed set of kinds.
var ErrUnknownSection = fmt.Errorf("%w: unknown section", httpx.ErrValidation)

// Section is one entry of a Layout. Only Enabled and the position within the
// layout are mutable.
type Section struct {
	Kind        Kind
	Name        string
	Description string
	Enabled     bool
}

var catalog = []Section{
	{Kind: KindHeader, Name: "Encabezado", Description: "Logo y datos de la empresa", Enabled: true},
	{Kind: KindClient, Name: "Cliente", Description: "Información del cliente", Enabled: true},
	{Kind: KindItems, Name: "Productos", Description: "Lista de productos/servicios", Enabled: true},
	{Kind: KindTotals, Name: "Totales", Description: "Subtotal, ISV y total", Enabled: true},
	{Kind: KindNotes, Name: "Notas", Description: "Términos y condiciones", Enabled: true},
	{Kind: KindVerification, Name: "Código QR", Description: "Verificación SAR", Enabled: false},
}

// Kinds returns every section kind in default order.
func Kinds() []Kind {
	kinds := make([]Kind, len(catalog))
	for i, s := range catalog {
		kinds[i] = s.Kind
	}
	return kinds
}

// ParseKind validates a section id.
func ParseKind(id string) (Kind, error) {
	k := Kind(id)
	if _, ok := lookup(k); !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownSection, id)
	}
	return k, nil
}

func lookup(k Kind) (Section, bool) {
	for _, s := range catalog {
		if s.Kind == k {
			return s, true
		}
	}
	return Section{}, false
}

// Layout is the ordered sequence of all six sections.
type Layout struct {
	sections []Section
}

// DefaultLayout returns the editor's starting layout: every section enabled
// except verification.
func DefaultLayout() *Layout {
	return &Layout{sections: slices.Clone(catalog)}
}

// Clone returns an independent copy.
func (l *Layout) Clone() *Layout {
	return &Layout{sections: slices.Clone(l.sections)}
}

// All returns a copy of every section in current order.
func (l *Layout) All() []Section {
	return slices.Clone(l.sections)
}

func (l *Layout) index(k Kind) (int, error) {
	i := slices.IndexFunc(l.sections, func(s Section) bool { return s.Kind == k })
	if i < 0 {
		return -1, fmt.Errorf("%w %q", ErrUnknownSection, k)
	}
	return i, nil
}

// Toggle flips the enabled flag of k without moving it.
func (l *Layout) Toggle(k Kind) error {
	i, err := l.index(k)
	if err != nil {
		return err
	}
	l.sections[i].Enabled = !l.sections[i].Enabled
	return nil
}

// SetEnabled forces the enabled flag of k.
func (l *Layout) SetEnabled(k Kind, enabled bool) error {
	i, err := l.index(k)
	if err != nil {
		return err
	}
	l.sections[i].Enabled = enabled
	return nil
}

// Reorder removes moved from the sequence and reinserts it at the index that
// before occupied. Moving up lands moved directly before the target, moving
// down lands it directly after. Untouched sections keep their relative order.
func (l *Layout) Reorder(moved, before Kind) error {
	from, err := l.index(moved)
	if err != nil {
		return err
	}
	to, err := l.index(before)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	s := l.sections[from]
	l.sections = slices.Delete(l.sections, from, from+1)
	l.sections = slices.Insert(l.sections, to, s)
	return nil
}

// EnabledInOrder yields the enabled sections top to bottom.
func (l *Layout) EnabledInOrder() iter.Seq[Section] {
	return func(yield func(Section) bool) {
		for _, s := range l.sections {
			if !s.Enabled {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Kinds returns the current order of every section, enabled or not.
func (l *Layout) Kinds() []Kind {
	kinds := make([]Kind, len(l.sections))
	for i, s := range l.sections {
		kinds[i] = s.Kind
	}
	return kinds
}

type layoutEntry struct {
	ID      Kind `json:"id"`
	Enabled bool `json:"enabled"`
}

// MarshalJSON encodes the order and enabled flags.
func (l *Layout) MarshalJSON() ([]byte, error) {
	entries := make([]layoutEntry, len(l.sections))
	for i, s := range l.sections {
		entries[i] = layoutEntry{ID: s.Kind, Enabled: s.Enabled}
	}
	return json.Marshal(entries)
}

// UnmarshalJSON restores a layout. Unknown or duplicated ids are rejected;
// kinds missing from the input are appended with their default state.
func (l *Layout) UnmarshalJSON(data []byte) error {
	var entries []layoutEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	out := make([]Section, 0, len(catalog))
	seen := make(map[Kind]bool, len(catalog))
	for _, e := range entries {
		s, ok := lookup(e.ID)
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownSection, e.ID)
		}
		if seen[e.ID] {
			return errors.New("sections: duplicate section " + string(e.ID))
		}
		seen[e.ID] = true
		s.Enabled = e.Enabled
		out = append(out, s)
	}
	for _, s := range catalog {
		if !seen[s.Kind] {
			out = append(out, s)
		}
	}
	l.sections = out
	return nil
}

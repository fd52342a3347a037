package sections

import (
	"fmt"
	"iter"
)

// Visitor renders one section kind into a T. Every renderer implements all
// six methods, so adding a kind fails to compile until each one handles it.
type Visitor[T any] interface {
	Header() T
	Client() T
	Items() T
	Totals() T
	Notes() T
	Verification() T
}

// Visit dispatches k to the matching Visitor method.
func Visit[T any](k Kind, v Visitor[T]) (T, error) {
	switch k {
	case KindHeader:
		return v.Header(), nil
	case KindClient:
		return v.Client(), nil
	case KindItems:
		return v.Items(), nil
	case KindTotals:
		return v.Totals(), nil
	case KindNotes:
		return v.Notes(), nil
	case KindVerification:
		return v.Verification(), nil
	}
	var zero T
	return zero, fmt.Errorf("%w %q", ErrUnknownSection, k)
}

// Collect visits every section of seq in order.
func Collect[T any](seq iter.Seq[Section], v Visitor[T]) ([]T, error) {
	var out []T
	for s := range seq {
		node, err := Visit(s.Kind, v)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

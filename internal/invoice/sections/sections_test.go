package sections

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturapro/facturapro/internal/platform/httpx"
)

func enabledKinds(l *Layout) []Kind {
	var kinds []Kind
	for s := range l.EnabledInOrder() {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()

	assert.Equal(t, []Kind{KindHeader, KindClient, KindItems, KindTotals, KindNotes, KindVerification}, l.Kinds())
	assert.Equal(t, []Kind{KindHeader, KindClient, KindItems, KindTotals, KindNotes}, enabledKinds(l))
}

func TestToggleKeepsOrder(t *testing.T) {
	l := DefaultLayout()

	require.NoError(t, l.Toggle(KindClient))
	require.NoError(t, l.Toggle(KindVerification))

	assert.Equal(t, Kinds(), l.Kinds())
	assert.Equal(t, []Kind{KindHeader, KindItems, KindTotals, KindNotes, KindVerification}, enabledKinds(l))
}

func TestToggleUnknown(t *testing.T) {
	err := DefaultLayout().Toggle(Kind("footer"))

	assert.ErrorIs(t, err, ErrUnknownSection)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestReorderMovesUpAndDown(t *testing.T) {
	l := DefaultLayout()

	require.NoError(t, l.Reorder(KindItems, KindHeader))
	assert.Equal(t, []Kind{KindItems, KindHeader, KindClient, KindTotals, KindNotes, KindVerification}, l.Kinds())

	require.NoError(t, l.Reorder(KindItems, KindTotals))
	assert.Equal(t, []Kind{KindHeader, KindClient, KindTotals, KindItems, KindNotes, KindVerification}, l.Kinds())
}

func TestReorderRoundTrip(t *testing.T) {
	kinds := Kinds()
	for _, moved := range kinds {
		for _, before := range kinds {
			l := DefaultLayout()
			original := l.Kinds()
			from := slices.Index(original, moved)

			require.NoError(t, l.Reorder(moved, before))
			back := l.Kinds()[from]
			require.NoError(t, l.Reorder(moved, back))

			assert.Equal(t, original, l.Kinds(), "moved %s before %s", moved, before)
		}
	}
}

func TestReorderSelfIsNoop(t *testing.T) {
	l := DefaultLayout()
	require.NoError(t, l.Reorder(KindNotes, KindNotes))
	assert.Equal(t, Kinds(), l.Kinds())
}

func TestReorderUnknown(t *testing.T) {
	l := DefaultLayout()
	assert.ErrorIs(t, l.Reorder(KindNotes, Kind("nope")), ErrUnknownSection)
	assert.ErrorIs(t, l.Reorder(Kind("nope"), KindNotes), ErrUnknownSection)
	assert.Equal(t, Kinds(), l.Kinds())
}

func TestAllDisabledYieldsEmpty(t *testing.T) {
	l := DefaultLayout()
	for _, k := range Kinds() {
		require.NoError(t, l.SetEnabled(k, false))
	}
	assert.Empty(t, enabledKinds(l))
}

func TestEnabledInOrderStopsEarly(t *testing.T) {
	var seen int
	for range DefaultLayout().EnabledInOrder() {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestLayoutJSON(t *testing.T) {
	l := DefaultLayout()
	require.NoError(t, l.Reorder(KindTotals, KindHeader))
	require.NoError(t, l.Toggle(KindNotes))

	data, err := json.Marshal(l)
	require.NoError(t, err)

	restored := &Layout{}
	require.NoError(t, json.Unmarshal(data, restored))
	assert.Equal(t, l.All(), restored.All())
}

func TestLayoutJSONFillsMissingAndRejectsUnknown(t *testing.T) {
	restored := &Layout{}
	require.NoError(t, json.Unmarshal([]byte(`[{"id":"notes","enabled":true}]`), restored))
	assert.Equal(t, []Kind{KindNotes, KindHeader, KindClient, KindItems, KindTotals, KindVerification}, restored.Kinds())

	err := json.Unmarshal([]byte(`[{"id":"footer","enabled":true}]`), &Layout{})
	assert.ErrorIs(t, err, ErrUnknownSection)
}

type kindNamer struct{}

func (kindNamer) Header() string       { return "h" }
func (kindNamer) Client() string       { return "c" }
func (kindNamer) Items() string        { return "i" }
func (kindNamer) Totals() string       { return "t" }
func (kindNamer) Notes() string        { return "n" }
func (kindNamer) Verification() string { return "v" }

func TestCollectFollowsOrder(t *testing.T) {
	l := DefaultLayout()
	require.NoError(t, l.Reorder(KindNotes, KindHeader))

	out, err := Collect(l.EnabledInOrder(), kindNamer{})
	require.NoError(t, err)
	assert.Equal(t, []string{"n", "h", "c", "i", "t"}, out)

	_, err = Visit(Kind("bogus"), kindNamer{})
	assert.ErrorIs(t, err, ErrUnknownSection)
}

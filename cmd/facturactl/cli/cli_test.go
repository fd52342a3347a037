package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/export"
	"github.com/facturapro/facturapro/internal/invoice/sections"
	"github.com/facturapro/facturapro/internal/money"
	"github.com/facturapro/facturapro/internal/platform/httpx"
)

type stubExporter struct {
	doc    *invoice.Document
	layout *sections.Layout
	key    string
}

func (s *stubExporter) Export(_ context.Context, key string, doc *invoice.Document, layout *sections.Layout) (export.File, error) {
	s.doc, s.layout, s.key = doc, layout, key
	return export.File{Name: export.Filename(doc.CompanyName), ContentType: export.ContentTypePDF, Data: []byte("%PDF-1.3 stub")}, nil
}

const yamlInvoice = `
companyName: Tech Store  Honduras
rtn: "08011999000123"
color: "#0f766e"
currency: usd
notes: Pago a 30 días
clientInfo:
  name: Inversiones Copán
  address: Col. Palmira, Tegucigalpa
items:
  - name: Laptop
    price: 1200.50
  - name: Mouse
    price: "25"
`

const jsonInvoice = `{
  "companyName": "Café Ñandú",
  "currency": "HNL",
  "items": [{"name": "Espresso", "price": 45}]
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRenderYAML(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "factura.yaml", yamlInvoice)
	exp := &stubExporter{}
	stdout := new(bytes.Buffer)

	path, err := Render(context.Background(), RenderOptions{
		In:       in,
		OutDir:   filepath.Join(dir, "out"),
		Exporter: exp,
		Stdout:   stdout,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "factura-tech-store-honduras.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	require.NotNil(t, exp.doc)
	assert.Equal(t, money.USD, exp.doc.Currency)
	assert.Equal(t, "#0f766e", exp.doc.AccentColor)
	assert.Equal(t, "Inversiones Copán", exp.doc.Client.Name)
	require.Len(t, exp.doc.Items, 2)
	assert.True(t, exp.doc.Items[0].Price.Equal(decimal.RequireFromString("1200.50")))
	assert.True(t, exp.doc.Items[1].Price.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "cli:factura.yaml", exp.key)
	assert.Equal(t, sections.DefaultLayout().Kinds(), exp.layout.Kinds())
	assert.Contains(t, stdout.String(), "factura-tech-store-honduras.pdf")
}

func TestRenderJSON(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "factura.json", jsonInvoice)
	exp := &stubExporter{}

	path, err := Render(context.Background(), RenderOptions{In: in, OutDir: dir, Exporter: exp})
	require.NoError(t, err)
	assert.Equal(t, "factura-cafe-nandu.pdf", filepath.Base(path))
	assert.Equal(t, money.HNL, exp.doc.Currency)
	require.Len(t, exp.doc.Items, 1)
	assert.True(t, exp.doc.Items[0].Price.Equal(decimal.NewFromInt(45)))
}

func TestRenderRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown key":    "companyName: X\ncolour: red\n",
		"negative price": "items:\n  - name: X\n    price: -1\n",
		"bad currency":   "currency: EUR\n",
		"bad color":      "color: teal\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			in := writeFile(t, dir, strings.ReplaceAll(name, " ", "-")+".yaml", body)
			_, err := Render(context.Background(), RenderOptions{In: in, OutDir: dir, Exporter: &stubExporter{}})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInput) || errors.Is(err, httpx.ErrValidation), "unexpected error %v", err)
		})
	}

	_, err := Render(context.Background(), RenderOptions{In: filepath.Join(dir, "missing.yaml"), OutDir: dir, Exporter: &stubExporter{}})
	assert.ErrorIs(t, err, ErrInput)

	empty := writeFile(t, dir, "empty.yaml", "")
	_, err = Render(context.Background(), RenderOptions{In: empty, OutDir: dir, Exporter: &stubExporter{}})
	assert.ErrorIs(t, err, ErrInput)
}

func TestParseSections(t *testing.T) {
	layout, err := ParseSections([]string{"items,header", "totals", "items"})
	require.NoError(t, err)

	var enabled []sections.Kind
	for s := range layout.EnabledInOrder() {
		enabled = append(enabled, s.Kind)
	}
	assert.Equal(t, []sections.Kind{sections.KindItems, sections.KindHeader, sections.KindTotals}, enabled)
	assert.Len(t, layout.Kinds(), 6)

	_, err = ParseSections([]string{"footer"})
	assert.ErrorIs(t, err, sections.ErrUnknownSection)

	def, err := ParseSections(nil)
	require.NoError(t, err)
	assert.Equal(t, sections.DefaultLayout().Kinds(), def.Kinds())
}

func TestAppCommands(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "factura.yaml", yamlInvoice)
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	exp := &stubExporter{}
	app := NewApp(stdout, stderr, func() (Exporter, error) { return exp, nil })

	require.NoError(t, app.Run([]string{"facturactl", "slug", "Distribuidora  Atlántida"}))
	assert.Equal(t, "factura-distribuidora-atlantida.pdf\n", stdout.String())

	stdout.Reset()
	require.NoError(t, app.Run([]string{"facturactl", "render", "--in", in, "--out", dir, "--sections", "header,items,totals"}))
	assert.Contains(t, stdout.String(), "factura-tech-store-honduras.pdf")
	var enabled []sections.Kind
	for s := range exp.layout.EnabledInOrder() {
		enabled = append(enabled, s.Kind)
	}
	assert.Equal(t, []sections.Kind{sections.KindHeader, sections.KindItems, sections.KindTotals}, enabled)
}

func TestRenderWithCanvasExporter(t *testing.T) {
	raster, err := export.NewCanvasRasterizer()
	require.NoError(t, err)
	dir := t.TempDir()
	in := writeFile(t, dir, "factura.json", jsonInvoice)

	path, err := Render(context.Background(), RenderOptions{In: in, OutDir: dir, Exporter: export.NewExporter(raster, nil)})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

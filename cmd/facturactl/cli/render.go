// Package cli implements the facturactl operator commands.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/facturapro/facturapro/internal/editor"
	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/export"
	"github.com/facturapro/facturapro/internal/invoice/sections"
)

// Exporter renders a document to a file.
type Exporter interface {
	Export(ctx context.Context, key string, doc *invoice.Document, layout *sections.Layout) (export.File, error)
}

// ErrInput reports an unreadable or invalid invoice file.
var ErrInput = errors.New("facturactl: invalid input")

// InvoiceFile is the on-disk invoice accepted by render. JSON files parse
// through the same decoder since JSON is valid YAML.
type InvoiceFile struct {
	CompanyName string     `yaml:"companyName"`
	TaxID       string     `yaml:"rtn"`
	Color       string     `yaml:"color"`
	Currency    string     `yaml:"currency"`
	Logo        string     `yaml:"logo"`
	Notes       *string    `yaml:"notes"`
	Client      FileClient `yaml:"clientInfo"`
	Items       []FileItem `yaml:"items"`
}

// FileItem is one line item. Price is kept as text so quoted and bare
// numbers both go through the editor's price parser.
type FileItem struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

// FileClient is the optional client block.
type FileClient struct {
	Name    string `yaml:"name"`
	TaxID   string `yaml:"rtn"`
	Address string `yaml:"address"`
}

// RenderOptions configures a render run.
type RenderOptions struct {
	In           string
	OutDir       string
	Sections     []string
	LogoMaxBytes int64
	Exporter     Exporter
	Stdout       io.Writer
}

// Render reads the invoice at opts.In, exports it and writes the PDF into
// opts.OutDir under the download filename. It returns the written path.
func Render(ctx context.Context, opts RenderOptions) (string, error) {
	if opts.Exporter == nil {
		return "", errors.New("facturactl: exporter required")
	}
	raw, err := os.ReadFile(opts.In)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrInput, opts.In, err)
	}
	file, err := DecodeInvoice(raw)
	if err != nil {
		return "", err
	}
	doc, err := file.Document(filepath.Dir(opts.In), opts.LogoMaxBytes)
	if err != nil {
		return "", err
	}
	layout, err := ParseSections(opts.Sections)
	if err != nil {
		return "", err
	}

	out, err := opts.Exporter.Export(ctx, "cli:"+filepath.Base(opts.In), doc, layout)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("facturactl: create %s: %w", opts.OutDir, err)
	}
	path := filepath.Join(opts.OutDir, out.Name)
	if err := os.WriteFile(path, out.Data, 0o644); err != nil {
		return "", fmt.Errorf("facturactl: write %s: %w", path, err)
	}
	if opts.Stdout != nil {
		total := doc.Totals()
		fmt.Fprintf(opts.Stdout, "%s\t%s\t%d bytes\n", path, doc.Format(total.Total), len(out.Data))
	}
	return path, nil
}

// DecodeInvoice parses a JSON or YAML invoice, rejecting unknown keys.
func DecodeInvoice(raw []byte) (*InvoiceFile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var file InvoiceFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInput)
		}
		return nil, fmt.Errorf("%w: %v", ErrInput, err)
	}
	return &file, nil
}

// Document builds the invoice through the document setters. A relative logo
// path is resolved against baseDir.
func (f *InvoiceFile) Document(baseDir string, logoMaxBytes int64) (*invoice.Document, error) {
	doc := invoice.NewDocument()
	doc.Items = nil
	if err := doc.SetCompanyName(f.CompanyName); err != nil {
		return nil, err
	}
	if err := doc.SetTaxID(f.TaxID); err != nil {
		return nil, err
	}
	if f.Color != "" {
		if err := doc.SetAccentColor(f.Color); err != nil {
			return nil, err
		}
	}
	if f.Currency != "" {
		if err := doc.SetCurrency(f.Currency); err != nil {
			return nil, err
		}
	}
	if f.Notes != nil {
		if err := doc.SetNotes(*f.Notes); err != nil {
			return nil, err
		}
	}
	if err := doc.SetClient(invoice.ClientInfo{Name: f.Client.Name, TaxID: f.Client.TaxID, Address: f.Client.Address}); err != nil {
		return nil, err
	}
	for _, it := range f.Items {
		item, err := doc.AddLineItem()
		if err != nil {
			return nil, err
		}
		if err := doc.UpdateLineItem(item.ID, invoice.FieldName, it.Name); err != nil {
			return nil, err
		}
		if err := doc.UpdateLineItem(item.ID, invoice.FieldPrice, it.Price); err != nil {
			return nil, err
		}
	}
	if f.Logo != "" {
		path := f.Logo
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		if logoMaxBytes <= 0 {
			logoMaxBytes = 2 << 20
		}
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: open logo: %v", ErrInput, err)
		}
		defer fh.Close()
		uri, err := editor.LogoDataURI(fh, logoMaxBytes)
		if err != nil {
			return nil, err
		}
		if err := doc.SetLogo(uri); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ParseSections turns a list of section ids into a layout where exactly
// those sections are enabled, in the given order, ahead of the rest. An
// empty list keeps the default layout.
func ParseSections(ids []string) (*sections.Layout, error) {
	layout := sections.DefaultLayout()
	var kinds []sections.Kind
	seen := make(map[sections.Kind]bool)
	for _, raw := range ids {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			k, err := sections.ParseKind(id)
			if err != nil {
				return nil, err
			}
			if !seen[k] {
				seen[k] = true
				kinds = append(kinds, k)
			}
		}
	}
	if len(kinds) == 0 {
		return layout, nil
	}
	for _, s := range layout.All() {
		if err := layout.SetEnabled(s.Kind, false); err != nil {
			return nil, err
		}
	}
	for i, k := range kinds {
		if err := layout.SetEnabled(k, true); err != nil {
			return nil, err
		}
		current := layout.All()
		if i >= len(current) || current[i].Kind == k {
			continue
		}
		if err := layout.Reorder(k, current[i].Kind); err != nil {
			return nil, err
		}
	}
	return layout, nil
}

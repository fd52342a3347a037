package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/facturapro/facturapro/web"
)

// Screenshotter captures a standalone HTML page as a PNG.
type Screenshotter interface {
	Screenshot(ctx context.Context, html []byte, width, height int) ([]byte, error)
}

// ScreenshotRasterizer renders the layout as absolutely positioned HTML and
// lets a headless browser paint it.
type ScreenshotRasterizer struct {
	client    Screenshotter
	templates *template.Template
}

// NewScreenshotRasterizer parses the page template.
func NewScreenshotRasterizer(client Screenshotter) (*ScreenshotRasterizer, error) {
	tpl, err := template.ParseFS(web.Templates, "templates/export/*.html")
	if err != nil {
		return nil, fmt.Errorf("export: parse page template: %w", err)
	}
	return &ScreenshotRasterizer{client: client, templates: tpl}, nil
}

type element struct {
	Style template.CSS
	Text  string
	Image bool
	Src   template.URL
}

type page struct {
	Title     string
	PageStyle template.CSS
	Elements  []element
}

// Rasterize implements Rasterizer.
func (s *ScreenshotRasterizer) Rasterize(ctx context.Context, l Layout, scale int) (image.Image, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("export: screenshot rasterizer not initialized")
	}
	html, err := s.HTML(l, scale)
	if err != nil {
		return nil, err
	}
	png, err := s.client.Screenshot(ctx, html, l.Width*scale, l.Height*scale)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(png))
	if err != nil {
		return nil, fmt.Errorf("export: decode screenshot: %w", err)
	}
	return img, nil
}

// HTML renders the static page for l.
func (s *ScreenshotRasterizer) HTML(l Layout, scale int) ([]byte, error) {
	p := page{
		Title: "Factura",
		PageStyle: template.CSS(fmt.Sprintf("width: %dpx; height: %dpx; transform: scale(%d);",
			l.Width, l.Height, scale)),
	}
	for _, b := range l.Blocks {
		for _, op := range b.Ops {
			p.Elements = append(p.Elements, elements(l.Width, b.Top, op)...)
		}
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "export/page", p); err != nil {
		return nil, fmt.Errorf("export: execute page template: %w", err)
	}
	return buf.Bytes(), nil
}

func elements(width, top int, op Op) []element {
	switch o := op.(type) {
	case Box:
		return []element{boxElement(top, o)}
	case Placeholder:
		return boxElements(top, o.boxes())
	case Glyph:
		return boxElements(top, o.boxes())
	case Picture:
		return []element{{
			Image: true,
			// URI is validated as an image data URI by the document.
			Src: template.URL(o.URI),
			Style: template.CSS(fmt.Sprintf("left: %dpx; top: %dpx; width: %dpx; height: %dpx; object-fit: contain;",
				o.X, top+o.Y, o.W, o.H)),
		}}
	case Text:
		return []element{textElement(width, top, o)}
	}
	return nil
}

func boxElements(top int, boxes []Box) []element {
	out := make([]element, len(boxes))
	for i, b := range boxes {
		out[i] = boxElement(top, b)
	}
	return out
}

func boxElement(top int, b Box) element {
	return element{Style: template.CSS(fmt.Sprintf(
		"left: %dpx; top: %dpx; width: %dpx; height: %dpx; border-radius: %dpx; background: %s;",
		b.X, top+b.Y, b.W, b.H, b.Radius, cssColor(b.Fill)))}
}

func textElement(width, top int, t Text) element {
	weight, style := 400, "normal"
	if t.Bold {
		weight = 700
	}
	if t.Italic {
		style = "italic"
	}
	// Y is the baseline; the box starts roughly one cap height above it.
	y := top + t.Y - int(t.Size*0.8)
	anchor := fmt.Sprintf("left: %dpx;", t.X)
	if t.Align == AlignRight {
		anchor = fmt.Sprintf("right: %dpx; text-align: right;", width-t.X)
	}
	return element{
		Text: t.Value,
		Style: template.CSS(fmt.Sprintf("%s top: %dpx; font-size: %gpx; font-weight: %d; font-style: %s; color: %s;",
			anchor, y, t.Size, weight, style, cssColor(t.Color))),
	}
}

func cssColor(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", c.R, c.G, c.B, float64(c.A)/255)
}

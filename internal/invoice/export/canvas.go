package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

// Rasterizer paints a Layout into a bitmap scale times its pixel size.
type Rasterizer interface {
	Rasterize(ctx context.Context, l Layout, scale int) (image.Image, error)
}

// CanvasRasterizer paints layouts in-process with the Go fonts.
type CanvasRasterizer struct {
	regular *opentype.Font
	bold    *opentype.Font
	italic  *opentype.Font
}

// NewCanvasRasterizer parses the embedded fonts.
func NewCanvasRasterizer() (*CanvasRasterizer, error) {
	parse := func(name string, ttf []byte) (*opentype.Font, error) {
		f, err := opentype.Parse(ttf)
		if err != nil {
			return nil, fmt.Errorf("export: parse %s font: %w", name, err)
		}
		return f, nil
	}
	regular, err := parse("regular", goregular.TTF)
	if err != nil {
		return nil, err
	}
	bold, err := parse("bold", gobold.TTF)
	if err != nil {
		return nil, err
	}
	italic, err := parse("italic", goitalic.TTF)
	if err != nil {
		return nil, err
	}
	return &CanvasRasterizer{regular: regular, bold: bold, italic: italic}, nil
}

// Rasterize implements Rasterizer.
func (c *CanvasRasterizer) Rasterize(ctx context.Context, l Layout, scale int) (image.Image, error) {
	if scale < 1 {
		return nil, fmt.Errorf("export: scale must be positive, got %d", scale)
	}
	if l.Width <= 0 || l.Height <= 0 {
		return nil, fmt.Errorf("export: empty canvas %dx%d", l.Width, l.Height)
	}
	if err := l.CheckSize(scale); err != nil {
		return nil, err
	}
	p := &painter{
		dst:   image.NewRGBA(image.Rect(0, 0, l.Width*scale, l.Height*scale)),
		scale: scale,
		fonts: c,
		faces: make(map[faceKey]font.Face),
	}
	defer p.close()
	draw.Draw(p.dst, p.dst.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)

	for _, b := range l.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, op := range b.Ops {
			if err := p.paint(b.Top, op); err != nil {
				return nil, fmt.Errorf("%s section: %w", b.Kind, err)
			}
		}
	}
	return p.dst, nil
}

type faceKey struct {
	size         float64
	bold, italic bool
}

type painter struct {
	dst   *image.RGBA
	scale int
	fonts *CanvasRasterizer
	faces map[faceKey]font.Face
}

func (p *painter) close() {
	for _, f := range p.faces {
		_ = f.Close()
	}
}

func (p *painter) rect(x, y, w, h int) image.Rectangle {
	s := p.scale
	return image.Rect(x*s, y*s, (x+w)*s, (y+h)*s)
}

func (p *painter) paint(top int, op Op) error {
	switch o := op.(type) {
	case Box:
		p.fill(p.rect(o.X, top+o.Y, o.W, o.H), o.Radius*p.scale, o.Fill)
	case Text:
		return p.text(top, o)
	case Picture:
		return p.picture(p.rect(o.X, top+o.Y, o.W, o.H), o.URI)
	case Placeholder:
		p.boxes(top, o.boxes())
	case Glyph:
		p.boxes(top, o.boxes())
	default:
		return fmt.Errorf("unsupported op %T", op)
	}
	return nil
}

func (p *painter) fill(r image.Rectangle, radius int, c color.NRGBA) {
	src := image.NewUniform(c)
	if radius <= 0 {
		draw.Draw(p.dst, r, src, image.Point{}, draw.Over)
		return
	}
	draw.DrawMask(p.dst, r, src, image.Point{}, roundedMask{r: r, radius: radius}, r.Min, draw.Over)
}

func (p *painter) face(t Text) (font.Face, error) {
	key := faceKey{size: t.Size, bold: t.Bold, italic: t.Italic}
	if f, ok := p.faces[key]; ok {
		return f, nil
	}
	src := p.fonts.regular
	switch {
	case t.Bold:
		src = p.fonts.bold
	case t.Italic:
		src = p.fonts.italic
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    t.Size * float64(p.scale),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	p.faces[key] = f
	return f, nil
}

func (p *painter) text(top int, t Text) error {
	if t.Value == "" {
		return nil
	}
	face, err := p.face(t)
	if err != nil {
		return err
	}
	d := &font.Drawer{Dst: p.dst, Src: image.NewUniform(t.Color), Face: face}
	x := fixed.I(t.X * p.scale)
	if t.Align == AlignRight {
		x -= d.MeasureString(t.Value)
	}
	d.Dot = fixed.Point26_6{X: x, Y: fixed.I((top + t.Y) * p.scale)}
	d.DrawString(t.Value)
	return nil
}

func (p *painter) picture(r image.Rectangle, uri string) error {
	img, err := decodeDataURI(uri)
	if err != nil {
		return err
	}
	fitted := imaging.Fit(img, r.Dx(), r.Dy(), imaging.Lanczos)
	b := fitted.Bounds()
	offset := image.Pt(r.Min.X+(r.Dx()-b.Dx())/2, r.Min.Y+(r.Dy()-b.Dy())/2)
	draw.Draw(p.dst, b.Add(offset), fitted, b.Min, draw.Over)
	return nil
}

func (p *painter) boxes(top int, boxes []Box) {
	for _, b := range boxes {
		p.fill(p.rect(b.X, top+b.Y, b.W, b.H), b.Radius*p.scale, b.Fill)
	}
}

func decodeDataURI(uri string) (image.Image, error) {
	i := strings.Index(uri, ";base64,")
	if !strings.HasPrefix(uri, "data:image/") || i < 0 {
		return nil, fmt.Errorf("logo is not an image data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(uri[i+len(";base64,"):])
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}
	return img, nil
}

// roundedMask is an alpha mask of a rectangle with rounded corners.
type roundedMask struct {
	r      image.Rectangle
	radius int
}

func (m roundedMask) ColorModel() color.Model { return color.AlphaModel }

func (m roundedMask) Bounds() image.Rectangle { return m.r }

func (m roundedMask) At(x, y int) color.Color {
	rad := min(m.radius, m.r.Dx()/2, m.r.Dy()/2)
	cx, cy := x, y
	switch {
	case x < m.r.Min.X+rad:
		cx = m.r.Min.X + rad
	case x >= m.r.Max.X-rad:
		cx = m.r.Max.X - rad - 1
	}
	switch {
	case y < m.r.Min.Y+rad:
		cy = m.r.Min.Y + rad
	case y >= m.r.Max.Y-rad:
		cy = m.r.Max.Y - rad - 1
	}
	dx, dy := x-cx, y-cy
	if dx*dx+dy*dy > rad*rad {
		return color.Alpha{}
	}
	return color.Alpha{A: 0xff}
}

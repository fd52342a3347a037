package editor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/facturapro/facturapro/internal/platform/httpx"
)

// MaxLogoSide is the largest edge, in pixels, kept for an uploaded logo.
// Larger images are downscaled before they are embedded in the draft.
const MaxLogoSide = 480

// MaxLogoPixels bounds the decoded size of an upload. The byte limit alone
// does not, since PNG compresses flat images very well.
const MaxLogoPixels = 4096 * 4096

var logoTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ErrLogo rejects an unusable upload.
var ErrLogo = fmt.Errorf("%w: logo", httpx.ErrValidation)

// LogoDataURI reads an uploaded image of at most maxBytes and returns it as a
// base64 data URI. Oversized images are fitted into MaxLogoSide and
// re-encoded as PNG.
func LogoDataURI(r io.Reader, maxBytes int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read upload: %v", ErrLogo, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrLogo)
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrLogo, maxBytes)
	}
	mime := http.DetectContentType(data)
	if !logoTypes[mime] {
		return "", fmt.Errorf("%w: unsupported type %s", ErrLogo, mime)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: undecodable image: %v", ErrLogo, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxLogoPixels {
		return "", fmt.Errorf("%w: image of %dx%d pixels is too large", ErrLogo, cfg.Width, cfg.Height)
	}
	if cfg.Width > MaxLogoSide || cfg.Height > MaxLogoSide {
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return "", fmt.Errorf("%w: undecodable image: %v", ErrLogo, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, imaging.Fit(img, MaxLogoSide, MaxLogoSide, imaging.Lanczos)); err != nil {
			return "", fmt.Errorf("editor: encode logo: %w", err)
		}
		data, mime = buf.Bytes(), "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

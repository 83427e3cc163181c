// Package qr encodes credential locators into scannable strings and
// classifies arbitrary scanned input back into an identifier or fingerprint.
package qr

import (
	"net/url"
	"regexp"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	dErrors "attest/pkg/domain-errors"
)

// Kind classifies a decoded QR payload.
type Kind int

const (
	KindUnknown Kind = iota
	KindID
	KindFingerprint
)

var (
	idPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)
	fpPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// Codec builds and parses canonical verification locators.
type Codec struct {
	baseURL string
}

// New constructs a codec rooted at the public base URL.
func New(baseURL string) *Codec {
	return &Codec{baseURL: strings.TrimRight(baseURL, "/")}
}

// EncodeID returns the canonical verification URL for a credential identifier.
func (c *Codec) EncodeID(id string) string {
	return c.baseURL + "/verify/" + id
}

// EncodeFingerprint returns the verification URL keyed by content fingerprint.
// The fp path segment disambiguates it from the identifier form.
func (c *Codec) EncodeFingerprint(fingerprint string) string {
	return c.baseURL + "/verify/fp/" + fingerprint
}

// Classify resolves an arbitrary scanned string into an identifier or a
// fingerprint. Bare hex input is classified by length alone: the 24-character
// identifier and 64-character fingerprint formats are disjoint, so a
// 64-hex-character string is always a fingerprint. URL forms are matched
// against the canonical locators last.
func (c *Codec) Classify(input string) (Kind, string, error) {
	value := strings.ToLower(strings.TrimSpace(input))
	if value == "" {
		return KindUnknown, "", dErrors.New(dErrors.CodeInvalidPayload, "empty QR payload")
	}

	if idPattern.MatchString(value) {
		return KindID, value, nil
	}
	if fpPattern.MatchString(value) {
		return KindFingerprint, value, nil
	}

	if kind, extracted, ok := c.classifyURL(value); ok {
		return kind, extracted, nil
	}
	return KindUnknown, "", dErrors.New(dErrors.CodeInvalidPayload, "unrecognized QR payload")
}

func (c *Codec) classifyURL(value string) (Kind, string, bool) {
	u, err := url.Parse(value)
	if err != nil || u.Path == "" {
		return KindUnknown, "", false
	}
	path := strings.Trim(u.Path, "/")
	segments := strings.Split(path, "/")

	for i, seg := range segments {
		if seg != "verify" {
			continue
		}
		rest := segments[i+1:]
		switch {
		case len(rest) == 2 && rest[0] == "fp" && fpPattern.MatchString(strings.ToLower(rest[1])):
			return KindFingerprint, strings.ToLower(rest[1]), true
		case len(rest) == 1 && idPattern.MatchString(strings.ToLower(rest[0])):
			return KindID, strings.ToLower(rest[0]), true
		}
	}
	return KindUnknown, "", false
}

// RenderPNG rasterizes a locator string into a PNG image. The rendering
// library is treated as an opaque collaborator: string in, image out.
func RenderPNG(locator string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(locator, qrcode.Medium, size)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "render QR image")
	}
	return png, nil
}

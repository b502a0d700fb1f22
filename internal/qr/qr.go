// Package qr renders the QR code that links students to a class's check-in form.
package qr

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"

	"qrattend/internal/cloudinary"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 300

// Generator builds check-in links and their QR images.
type Generator struct {
	baseURL string
}

func NewGenerator(frontendBaseURL string) *Generator {
	return &Generator{baseURL: strings.TrimRight(frontendBaseURL, "/")}
}

// URL is the public attendance form of a class.
func (g *Generator) URL(classID string) string {
	return g.baseURL + "/asistencias/" + url.PathEscape(classID)
}

// PNG renders the class link; size is clamped to [128, 1024].
func (g *Generator) PNG(classID string, size int) ([]byte, error) {
	switch {
	case size <= 0:
		size = DefaultSize
	case size < 128:
		size = 128
	case size > 1024:
		size = 1024
	}
	png, err := qrcode.Encode(g.URL(classID), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	return png, nil
}

// Publisher uploads the QR image of a class to Cloudinary.
type Publisher struct {
	gen *Generator
	cdn *cloudinary.Client
}

func NewPublisher(gen *Generator, cdn *cloudinary.Client) *Publisher {
	return &Publisher{gen: gen, cdn: cdn}
}

// PublishQR renders and uploads the image, returning its HTTPS URL.
func (p *Publisher) PublishQR(ctx context.Context, classID string) (string, error) {
	png, err := p.gen.PNG(classID, DefaultSize)
	if err != nil {
		return "", err
	}
	res, err := p.cdn.UploadBytes(ctx, png, "qr_clase_"+classID)
	if err != nil {
		return "", err
	}
	return res.SecureURL, nil
}

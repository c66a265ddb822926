package assets

import (
	"errors"
	"image"

	"github.com/skip2/go-qrcode"
)

// qrImage encodes content at medium error correction.
func (l *Loader) qrImage(content string) (image.Image, error) {
	if content == "" {
		return nil, errors.New("qr reference has no content")
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return q.Image(l.qrSize), nil
}

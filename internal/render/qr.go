package render

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRSize is the pixel size of ticket QR codes.
const QRSize = 256

// QRCode encodes payload as a PNG with medium error correction and the
// standard quiet zone.
func QRCode(payload string, size int) ([]byte, error) {
	const op = "render.QRCode"

	if size <= 0 {
		size = QRSize
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return png, nil
}

// QRDataURI returns the QR code as an inline image URI for email bodies.
func QRDataURI(payload string) (string, error) {
	png, err := QRCode(payload, QRSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

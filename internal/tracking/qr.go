package tracking

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRGenerator renders QR codes that point customers at an order's tracking page.
type QRGenerator struct {
	baseURL string
}

func NewQRGenerator(baseURL string) *QRGenerator {
	return &QRGenerator{baseURL: strings.TrimRight(baseURL, "/")}
}

func (q *QRGenerator) TrackingURL(orderID int64) string {
	return fmt.Sprintf("%s/orders/%d/tracking", q.baseURL, orderID)
}

// PNG encodes the tracking URL as a PNG image.
func (q *QRGenerator) PNG(orderID int64) ([]byte, error) {
	png, err := qrcode.Encode(q.TrackingURL(orderID), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tracking QR for order %d: %w", orderID, err)
	}
	return png, nil
}

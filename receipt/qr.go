// Package receipt renders order receipts and the QR codes staff scan at the bar.
package receipt

import (
	"fmt"
	"strings"

	"taproom-backend/models"

	"github.com/skip2/go-qrcode"
)

const DefaultQRSize = 256

// EncodeQR returns a PNG of payload. Sizes below 64 px are not scannable
// from a phone screen and are bumped up.
func EncodeQR(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty qr payload")
	}
	if size < 64 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr: %w", err)
	}
	return png, nil
}

// OrderQRPayload points at the order's page on the public site.
func OrderQRPayload(baseURL string, order *models.Order) string {
	return strings.TrimRight(baseURL, "/") + "/orders/" + order.ID.String()
}

// RedemptionQRPayload is the bare code: the scanner feeds it straight into
// the staff lookup.
func RedemptionQRPayload(r *models.Redemption) string {
	return r.Code
}

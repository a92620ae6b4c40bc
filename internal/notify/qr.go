package notify

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// PaymentQR renders a payment link as a PNG QR code for the payment step.
func PaymentQR(link string) ([]byte, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode payment qr: %w", err)
	}
	return png, nil
}

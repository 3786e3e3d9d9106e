package pixgateway

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// EnsureQRImage renders the payable code as a PNG when the provider did not return one.
func EnsureQRImage(charge *Charge) error {
	if charge == nil || charge.QRImageBase64 != "" || charge.PayableCode == "" {
		return nil
	}
	png, err := qrcode.Encode(charge.PayableCode, qrcode.Medium, qrImageSize)
	if err != nil {
		return err
	}
	charge.QRImageBase64 = base64.StdEncoding.EncodeToString(png)
	return nil
}

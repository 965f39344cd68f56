package helpers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/rentdesk/rentdesk/internal/configuration"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const qrCodeSize = 240

// TOTPKey holds the generated TOTP key information.
type TOTPKey struct {
	Secret string // Base32-encoded secret
	URL    string // otpauth:// URL
	QRCode string // data:image/png;base64 rendering of URL
}

// GenerateTOTPSecret creates a new TOTP secret for the given account name.
func GenerateTOTPSecret(accountName string) (*TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      configuration.AppName,
		AccountName: accountName,
		SecretSize:  20,
	})
	if err != nil {
		return nil, err
	}

	qrCode, err := QRCodeDataURI(key)
	if err != nil {
		return nil, err
	}

	return &TOTPKey{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: qrCode,
	}, nil
}

// QRCodeDataURI renders the key as a PNG QR code embedded in a data URI.
func QRCodeDataURI(key *otp.Key) (string, error) {
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}

	var buf bytes.Buffer
	if err = png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ValidateTOTPCode validates a 6-digit TOTP code against the given secret.
func ValidateTOTPCode(secret string, code string) bool {
	return totp.Validate(code, secret)
}

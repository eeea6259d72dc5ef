package services

import (
	"bytes"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/filex"
	"github.com/pquerna/otp/totp"
)

const qrDataURLPrefix = "data:image/png;base64,"

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// DecodeSecret normalizes a manual entry key (spaces, lower case, padding)
// and decodes it.
func DecodeSecret(manualKey string) ([]byte, error) {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(manualKey), " ", ""))
	key = strings.TrimRight(key, "=")
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(key)
	if err != nil || len(raw) == 0 {
		return nil, invalid("manual_entry_key", "Invalid 2FA secret")
	}
	return raw, nil
}

// ProvisioningURI builds the otpauth:// URI for authenticator apps from the
// setup bundle. An empty issuer defaults to the application name.
func ProvisioningURI(setup *models.TwoFactorSetup, account, issuer string) (string, error) {
	secret := setup.ManualEntryKey
	if secret == "" {
		secret = setup.Secret
	}
	raw, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	if issuer == "" {
		issuer = common.AppName
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: issuer, AccountName: account, Secret: raw})
	if err != nil {
		return "", fmt.Errorf("provisioning uri: %w", err)
	}
	return key.URL(), nil
}

// SaveQRCode writes the setup's QR image to path with 0600 permissions.
func SaveQRCode(setup *models.TwoFactorSetup, path string) error {
	if !strings.HasPrefix(setup.QRCode, qrDataURLPrefix) {
		return invalid("qr_code", "QR code is not a PNG data URL")
	}
	img, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(setup.QRCode, qrDataURLPrefix))
	if err != nil || !bytes.HasPrefix(img, pngMagic) {
		return invalid("qr_code", "QR code is not a valid PNG image")
	}
	return filex.WritePrivate(path, img)
}

// ExportBackupCodes writes one code per line to path with 0600 permissions.
func ExportBackupCodes(codes []string, path string) error {
	if len(codes) == 0 {
		return invalid("backup_codes", "No backup codes to export")
	}
	return filex.WritePrivate(path, []byte(strings.Join(codes, "\n")+"\n"))
}

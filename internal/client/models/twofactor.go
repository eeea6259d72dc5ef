package models

type TwoFactorStatus struct {
	Enabled bool `json:"enabled"`
}

// TwoFactorSetup is the transient bundle returned when 2FA setup starts.
// QRCode is a data URL ("data:image/png;base64,...") and ManualEntryKey the
// base32 secret for authenticator apps without a camera.
type TwoFactorSetup struct {
	Secret         string `json:"secret"`
	QRCode         string `json:"qr_code"`
	ManualEntryKey string `json:"manual_entry_key"`
}

type TwoFactorEnableRequest struct {
	Token string `json:"token"`
}

// TwoFactorEnableResponse carries the one-time backup codes. The server
// never returns them again.
type TwoFactorEnableResponse struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message,omitempty"`
	BackupCodes []string `json:"backup_codes"`
}

type TwoFactorDisableRequest struct {
	Password string `json:"password"`
	Token    string `json:"token"`
}

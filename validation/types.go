package validation

import "github.com/openland/landauction/receipt"

// BaseValidationResult contains validation results common to every receipt check
type BaseValidationResult struct {
	SignatureValid    bool
	KeyIDMatch        bool
	ValidationDetails []string
}

// KeyValidationResult contains validation results specific to signing key checks
type KeyValidationResult struct {
	BaseValidationResult
	KeyTrusted bool
}

// IsValid returns true if all key validation checks passed
func (r *KeyValidationResult) IsValid() bool {
	return r.SignatureValid && r.KeyIDMatch && r.KeyTrusted
}

// ReceiptValidationResult contains validation results specific to settlement receipts
type ReceiptValidationResult struct {
	BaseValidationResult
	BidLogValid     bool
	BidLogHashValid bool
	FinalPriceValid bool
	AmountDueValid  bool
	WinnerValid     bool

	// Receipt is the decoded payload, set once the COSE structure parses
	Receipt *receipt.SettlementReceipt
}

// IsValid returns true if all receipt validation checks passed
func (r *ReceiptValidationResult) IsValid() bool {
	return r.SignatureValid && r.KeyIDMatch && r.BidLogValid && r.BidLogHashValid &&
		r.FinalPriceValid && r.AmountDueValid && r.WinnerValid
}

// TrustedKey is a receipt signing key published by an auction operator
type TrustedKey struct {
	KeyID     string `json:"key_id"`
	PublicKey string `json:"public_key"`
	Operator  string `json:"operator"` // land bureau or platform that runs the engine
}

// TrustedKeyConfig represents the trusted key file structure
type TrustedKeyConfig struct {
	Keys []TrustedKey `json:"keys"`
}

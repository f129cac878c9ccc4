package validation

import (
	"fmt"

	"github.com/openland/landauction/engineapi"
)

// ValidateReceiptKey validates that a receipt was signed by a published operator key
//
// Parameters:
//   - receiptCOSEBase64: Base64-encoded COSE_Sign1 bytes from a get_receipt response
//   - publicKeyPEM: PEM-encoded public key the operator claims signed the receipt
//   - trustedKeys: published operator keys, usually from LoadTrustedKeysFromFile
//
// Returns:
//   - KeyValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed input)
func ValidateReceiptKey(receiptCOSEBase64 engineapi.ReceiptCOSEBase64, publicKeyPEM string, trustedKeys []TrustedKey) (*KeyValidationResult, error) {
	baseResult, _, err := validateCommonReceipt(receiptCOSEBase64, publicKeyPEM)
	if err != nil {
		return nil, err
	}

	result := &KeyValidationResult{
		BaseValidationResult: *baseResult,
	}

	match, index := ValidateTrustedKey(publicKeyPEM, trustedKeys)
	result.KeyTrusted = match
	if !match {
		result.ValidationDetails = append(result.ValidationDetails, "Public key not found among trusted keys")
	} else {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Matched trusted key #%d (operator: %s)", index, trustedKeys[index].Operator))
	}

	return result, nil
}

package validation

import (
	"fmt"

	"github.com/openland/landauction/engineapi"
	"github.com/openland/landauction/receipt"
)

// validateCommonReceipt performs validation common to all receipt checks.
// Parses the COSE bytes internally and validates the signature and key id.
// Returns BaseValidationResult with validation results and the decoded receipt.
func validateCommonReceipt(receiptCOSEBase64 engineapi.ReceiptCOSEBase64, publicKeyPEM string) (*BaseValidationResult, *receipt.SettlementReceipt, error) {
	coseBytes, err := receiptCOSEBase64.Decode()
	if err != nil {
		return nil, nil, fmt.Errorf("decode COSE bytes: %w", err)
	}

	payload, err := ExtractCOSEPayload(coseBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("extract receipt payload: %w", err)
	}

	settlement, err := receipt.Unmarshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("parse settlement receipt: %w", err)
	}

	expectedKeyID, err := receipt.KeyIDForPEM(publicKeyPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("parse public key: %w", err)
	}

	result := &BaseValidationResult{
		ValidationDetails: []string{},
	}

	// Validate key id
	keyID, err := ExtractKeyID(coseBytes)
	switch {
	case err != nil:
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Key id unreadable: %v", err))
	case keyID == "":
		result.ValidationDetails = append(result.ValidationDetails, "Key id missing from receipt header")
	case keyID != expectedKeyID:
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Key id mismatch: receipt has %s, public key is %s", keyID, expectedKeyID))
	default:
		result.KeyIDMatch = true
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Key id matches: %s", keyID))
	}

	// Verify COSE signature
	err = VerifyCOSESignature(receiptCOSEBase64, publicKeyPEM)
	if err != nil {
		result.SignatureValid = false
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("COSE signature verification failed: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, "COSE signature verified")
	}

	return result, settlement, nil
}

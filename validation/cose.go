package validation

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/openland/landauction/engineapi"
	"github.com/openland/landauction/receipt"
)

// COSE header label for the key identifier (RFC 9052 section 3.1)
const headerLabelKeyID = 4

// parseSign1 splits a COSE_Sign1 into its 4 elements: [protected, unprotected, payload, signature].
// The COSE_Sign1 tag (18) is optional and ignored when decoding into a slice.
func parseSign1(coseBytes []byte) ([]any, error) {
	var coseArray []any
	if err := cbor.Unmarshal(coseBytes, &coseArray); err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}

	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}
	return coseArray, nil
}

// ExtractCOSEPayload extracts the payload (element 2) from a COSE_Sign1 structure
func ExtractCOSEPayload(coseBytes []byte) ([]byte, error) {
	coseArray, err := parseSign1(coseBytes)
	if err != nil {
		return nil, err
	}

	payload, ok := coseArray[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid payload in COSE structure")
	}

	return payload, nil
}

// ExtractKeyID returns the hex key id from the unprotected header, or "" when absent
func ExtractKeyID(coseBytes []byte) (string, error) {
	coseArray, err := parseSign1(coseBytes)
	if err != nil {
		return "", err
	}

	unprotected, ok := coseArray[1].(map[any]any)
	if !ok {
		return "", fmt.Errorf("invalid unprotected headers")
	}

	for label, value := range unprotected {
		if !isKeyIDLabel(label) {
			continue
		}
		kid, ok := value.([]byte)
		if !ok {
			return "", fmt.Errorf("invalid key id header")
		}
		return hex.EncodeToString(kid), nil
	}
	return "", nil
}

func isKeyIDLabel(label any) bool {
	switch v := label.(type) {
	case uint64:
		return v == headerLabelKeyID
	case int64:
		return v == headerLabelKeyID
	}
	return false
}

// VerifyCOSESignature verifies a COSE_Sign1 receipt signature given base64-encoded COSE bytes and a PEM public key
func VerifyCOSESignature(coseB64 engineapi.ReceiptCOSEBase64, publicKeyPEM string) error {
	coseBytes, err := coseB64.Decode()
	if err != nil {
		return fmt.Errorf("decode COSE bytes: %w", err)
	}

	ecdsaKey, err := receipt.ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}

	coseArray, err := parseSign1(coseBytes)
	if err != nil {
		return err
	}

	protectedBytes, ok := coseArray[0].([]byte)
	if !ok {
		return fmt.Errorf("invalid protected headers")
	}

	payload, ok := coseArray[2].([]byte)
	if !ok {
		return fmt.Errorf("invalid payload")
	}

	signature, ok := coseArray[3].([]byte)
	if !ok {
		return fmt.Errorf("invalid signature")
	}

	// Sig_structure for COSE_Sign1: ["Signature1", protected, external_aad, payload]
	// Receipts are signed without external_aad
	sigStructure := []any{
		"Signature1",
		protectedBytes,
		[]byte{},
		payload,
	}

	sigStructureBytes, err := cbor.Marshal(sigStructure)
	if err != nil {
		return fmt.Errorf("marshal Sig_structure: %w", err)
	}

	// Receipts are signed with ES256 (ECDSA P-256 with SHA-256)
	verifier, err := cose.NewVerifier(cose.AlgorithmES256, ecdsaKey)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	err = verifier.Verify(sigStructureBytes, signature)
	if err != nil {
		return fmt.Errorf("COSE signature verification failed: %w", err)
	}

	return nil
}

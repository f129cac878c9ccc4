package receipt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/veraison/go-cose"
)

// KeyManager holds the ECDSA P-256 key that signs settlement receipts.
type KeyManager struct {
	privateKey *ecdsa.PrivateKey // Keep private - sensitive!
	PublicKey  *ecdsa.PublicKey
	keyID      []byte
	signer     cose.Signer
}

// NewKeyManager creates a new KeyManager with a freshly generated key.
func NewKeyManager() (*KeyManager, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return newKeyManager(privateKey)
}

func newKeyManager(privateKey *ecdsa.PrivateKey) (*KeyManager, error) {
	signer, err := cose.NewSigner(cose.AlgorithmES256, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	keyID, err := keyIDOf(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}

	return &KeyManager{
		privateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		keyID:      keyID,
		signer:     signer,
	}, nil
}

// keyIDOf returns the first 8 bytes of the SHA-256 of the PKIX-encoded public key.
func keyIDOf(publicKey *ecdsa.PublicKey) ([]byte, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	digest := sha256.Sum256(derBytes)
	return digest[:8], nil
}

// LoadOrCreateKeyManager reads a PEM private key from path, or generates one and
// writes it there (mode 0600) when the file does not exist.
func LoadOrCreateKeyManager(path string) (*KeyManager, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		km, err := NewKeyManager()
		if err != nil {
			return nil, err
		}
		pemBytes, err := km.PrivateKeyPEM()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write receipt key: %w", err)
		}
		log.Printf("INFO: Generated receipt signing key %s at %s", km.KeyID(), path)
		return km, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt key: %w", err)
	}
	return ParsePrivateKeyPEM(data)
}

// ParsePrivateKeyPEM accepts a SEC1 "EC PRIVATE KEY" or PKCS#8 "PRIVATE KEY" block.
func ParsePrivateKeyPEM(data []byte) (*KeyManager, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	var privateKey *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse EC private key: %w", err)
		}
		privateKey = key
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#8 private key: %w", err)
		}
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not ECDSA")
		}
		privateKey = ecKey
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}

	if privateKey.Curve != elliptic.P256() {
		return nil, fmt.Errorf("receipt key must be P-256, got %s", privateKey.Curve.Params().Name)
	}
	return newKeyManager(privateKey)
}

// PrivateKeyPEM returns the private key as a SEC1 PEM block.
func (km *KeyManager) PrivateKeyPEM() ([]byte, error) {
	derBytes, err := x509.MarshalECPrivateKey(km.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: derBytes}), nil
}

// PublicKeyPEM returns the public key in PEM format
func (km *KeyManager) PublicKeyPEM() (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(km.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pemBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	}

	return string(pem.EncodeToMemory(pemBlock)), nil
}

// KeyID is the hex prefix of the public key digest carried in every receipt header.
func (km *KeyManager) KeyID() string {
	return hex.EncodeToString(km.keyID)
}

// Sign encodes r and wraps it in a COSE_Sign1 message signed with ES256.
func (km *KeyManager) Sign(r SettlementReceipt) ([]byte, error) {
	payload, err := r.Marshal()
	if err != nil {
		return nil, err
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Headers.Protected[cose.HeaderLabelContentType] = "application/cbor"
	msg.Headers.Unprotected[cose.HeaderLabelKeyID] = km.keyID
	msg.Payload = payload

	if err := msg.Sign(rand.Reader, nil, km.signer); err != nil {
		return nil, fmt.Errorf("failed to sign receipt: %w", err)
	}

	coseBytes, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal COSE_Sign1: %w", err)
	}
	return coseBytes, nil
}

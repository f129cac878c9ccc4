package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/openland/landauction/engineapi"
	"github.com/openland/landauction/validation"
)

// plainTextHandler is a simple slog handler that writes plain text to stdout
// without timestamps or log levels - appropriate for CLI output
type plainTextHandler struct{}

func (*plainTextHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (*plainTextHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintln(os.Stdout, r.Message)
	return err
}

func (h *plainTextHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *plainTextHandler) WithGroup(_ string) slog.Handler {
	return h
}

var logger = slog.New(&plainTextHandler{})

func main() {
	var (
		receiptPath     = flag.String("receipt", "", "Path to get_receipt response JSON file (required)")
		publicKeyPath   = flag.String("public-key", "", "Path to public key PEM file (required)")
		trustedKeysPath = flag.String("trusted-keys", validation.DefaultTrustedKeysPath(), "Path to trusted key JSON file")
		outputFormat    = flag.String("format", "text", "Output format: text or json")
		help            = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help || *receiptPath == "" || *publicKeyPath == "" {
		showUsage()
		if *receiptPath == "" || *publicKeyPath == "" {
			os.Exit(1)
		}
		os.Exit(0)
	}

	receiptData, err := readReceiptData(*receiptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading receipt: %v\n", err)
		os.Exit(2)
	}

	publicKey, err := readPublicKey(*publicKeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	trustedKeys, err := validation.LoadTrustedKeysFromFile(*trustedKeysPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading trusted keys: %v\n", err)
		os.Exit(2)
	}

	result, err := validation.ValidateReceiptKey(receiptData.ReceiptCOSEBase64, publicKey, trustedKeys)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		if err := outputJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(2)
		}
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	logger.Info("Receipt Signing Key Validator")
	logger.Info("")
	logger.Info("Checks that a settlement receipt was signed by a published operator key.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  key-validator --receipt <path> --public-key <pem> [options]")
	logger.Info("")
	logger.Info("Required Flags:")
	logger.Info("  --receipt <path>                  Path to get_receipt response JSON file")
	logger.Info("  --public-key <path>               Path to public key PEM file")
	logger.Info("")
	logger.Info("Optional Flags:")
	logger.Info("  --trusted-keys <path>             Trusted key JSON file (default: validation/trusted_keys.json)")
	logger.Info("  --format <text|json>              Output format (default: text)")
	logger.Info("  --help                            Show this help message")
	logger.Info("")
	logger.Info("Examples:")
	logger.Info("  key-validator --receipt receipt.json --public-key receipt_key.pem")
	logger.Info("  key-validator --receipt receipt.json --public-key receipt_key.pem --format json")
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Validation passed")
	logger.Info("  1 - Validation failed")
	logger.Info("  2 - Invalid input or runtime error")
}

// readReceiptData accepts either the full response envelope or its data object
func readReceiptData(path string) (*engineapi.ReceiptData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var envelope struct {
		Data *engineapi.ReceiptData `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	receiptData := envelope.Data
	if receiptData == nil {
		receiptData = &engineapi.ReceiptData{}
		if err := json.Unmarshal(data, receiptData); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}

	if receiptData.ReceiptCOSEBase64 == "" {
		return nil, fmt.Errorf("missing receipt_cose_base64 field in receipt response")
	}

	return receiptData, nil
}

func readPublicKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return string(data), nil
}

func outputText(result *validation.KeyValidationResult) {
	logger.Info("Receipt Signing Key Validator")
	logger.Info("=============================")
	logger.Info("")

	logger.Info("Summary:")
	logger.Info(fmt.Sprintf("  Signature Valid:   %v", result.SignatureValid))
	logger.Info(fmt.Sprintf("  Key ID Match:      %v", result.KeyIDMatch))
	logger.Info(fmt.Sprintf("  Key Trusted:       %v", result.KeyTrusted))

	logger.Info("")
	logger.Info("Details:")
	for _, detail := range result.ValidationDetails {
		logger.Info(fmt.Sprintf("  - %s", detail))
	}

	logger.Info("")
	logger.Info("=============================")
	if result.IsValid() {
		logger.Info("VALIDATION: ✓ PASSED")
		logger.Info("Exit Code: 0")
	} else {
		logger.Info("VALIDATION: ✗ FAILED")
		logger.Info("Exit Code: 1")
	}
}

func outputJSON(result *validation.KeyValidationResult) error {
	output := map[string]any{
		"valid":           result.IsValid(),
		"signature_valid": result.SignatureValid,
		"key_id_match":    result.KeyIDMatch,
		"key_trusted":     result.KeyTrusted,
		"details":         result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	logger.Info(string(data))
	return nil
}

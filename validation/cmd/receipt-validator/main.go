package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/openland/landauction/core"
	"github.com/openland/landauction/engineapi"
	"github.com/openland/landauction/validation"
)

func main() {
	var (
		receiptInput      = flag.String("receipt", "", "get_receipt response JSON (file path or inline JSON)")
		bidLogInput       = flag.String("bid-log", "", "get_bid_log response JSON (file path or inline JSON, optional)")
		notificationInput = flag.String("notification", "", "Settlement notification JSON (file path or inline JSON)")
		publicKeyPath     = flag.String("public-key", "", "Path to receipt public key PEM file")
		outputFormat      = flag.String("format", "text", "Output format: text or json")
		help              = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if *receiptInput == "" || *notificationInput == "" || *publicKeyPath == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: --receipt, --notification and --public-key are required\n")
		os.Exit(1)
	}

	receiptJSON, err := readJSONInput(*receiptInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading receipt: %v\n", err)
		os.Exit(2)
	}

	notification, err := readJSONInput(*notificationInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading notification: %v\n", err)
		os.Exit(2)
	}

	var bidLogJSON []byte
	if *bidLogInput != "" {
		bidLogJSON, err = readJSONInput(*bidLogInput)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading bid log: %v\n", err)
			os.Exit(2)
		}
	}

	publicKey, err := os.ReadFile(*publicKeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	validationInput, err := extractValidationInput(receiptJSON, bidLogJSON, notification)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting validation data: %v\n", err)
		os.Exit(2)
	}
	validationInput.PublicKeyPEM = string(publicKey)

	result, err := validation.ValidateSettlementReceipt(validationInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		outputJSON(result)
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Settlement Receipt Validator")
	fmt.Println()
	fmt.Println("Validates a signed land auction settlement receipt against the published bid log.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  receipt-validator --receipt <json> --notification <json> --public-key <pem> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --receipt <json>                  get_receipt response or settlement link payload")
	fmt.Println("  --notification <json>             What the bidder expects the outcome to be")
	fmt.Println("  --public-key <path>               Operator's receipt public key (PEM)")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --bid-log <json>                  get_bid_log response; hash chain checks are skipped without it")
	fmt.Println("  --format <text|json>              Output format (default: text)")
	fmt.Println("  --help                            Show this help message")
	fmt.Println()
	fmt.Println("Input Format:")
	fmt.Println("  Each JSON flag accepts either a file path or inline JSON string.")
	fmt.Println()
	fmt.Println("Receipt (get_receipt data or settlement link):")
	fmt.Println("  {")
	fmt.Println("    \"auction_id\": \"auction-1\",")
	fmt.Println("    \"receipt_cose_gzip\": \"H4sIAAAA...\"")
	fmt.Println("  }")
	fmt.Println()
	fmt.Println("Notification:")
	fmt.Println("  {")
	fmt.Println("    \"bidder_id\": \"bidder_y\",")
	fmt.Println("    \"final_price\": \"8750\",                         // or null if no winner")
	fmt.Println("    \"is_winner\": true")
	fmt.Println("  }")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  receipt-validator \\")
	fmt.Println("    --receipt receipt.json \\")
	fmt.Println("    --bid-log bid_log.json \\")
	fmt.Println("    --notification '{\"bidder_id\":\"bidder_y\",\"final_price\":\"8750\",\"is_winner\":true}' \\")
	fmt.Println("    --public-key receipt_key.pem")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Validation passed")
	fmt.Println("  1 - Validation failed")
	fmt.Println("  2 - Invalid input or runtime error")
}

func readJSONInput(input string) ([]byte, error) {
	// Try reading as file first
	if data, err := os.ReadFile(input); err == nil {
		return data, nil
	}
	// Treat as inline JSON
	return []byte(input), nil
}

// unwrapData returns the data member of a response envelope, or raw itself when it is not one
func unwrapData(raw []byte) []byte {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		return envelope.Data
	}
	return raw
}

func extractValidationInput(receiptJSON, bidLogJSON, notificationJSON []byte) (*validation.ReceiptValidationInput, error) {
	var receiptData engineapi.ReceiptData
	if err := json.Unmarshal(unwrapData(receiptJSON), &receiptData); err != nil {
		return nil, fmt.Errorf("parse receipt: %w", err)
	}
	if receiptData.ReceiptCOSEGzip == "" && receiptData.ReceiptCOSEBase64 == "" {
		return nil, fmt.Errorf("missing 'receipt_cose_gzip' or 'receipt_cose_base64' in receipt")
	}

	var notification struct {
		BidderID   string           `json:"bidder_id"`
		FinalPrice *decimal.Decimal `json:"final_price"`
		IsWinner   bool             `json:"is_winner"`
	}
	if err := json.Unmarshal(notificationJSON, &notification); err != nil {
		return nil, fmt.Errorf("parse notification: %w", err)
	}
	if notification.BidderID == "" {
		return nil, fmt.Errorf("missing or invalid 'bidder_id' in notification")
	}

	var bidLog []core.Bid
	if len(bytes.TrimSpace(bidLogJSON)) > 0 {
		bidLog = []core.Bid{}
		if err := json.Unmarshal(unwrapData(bidLogJSON), &bidLog); err != nil {
			return nil, fmt.Errorf("parse bid log: %w", err)
		}
	}

	return &validation.ReceiptValidationInput{
		ReceiptCOSEGzip:   receiptData.ReceiptCOSEGzip,
		ReceiptCOSEBase64: receiptData.ReceiptCOSEBase64,
		BidLog:            bidLog,
		BidderID:          notification.BidderID,
		FinalPrice:        notification.FinalPrice,
		IsWinner:          notification.IsWinner,
	}, nil
}

func outputText(result *validation.ReceiptValidationResult) {
	fmt.Println("Settlement Receipt Validator")
	fmt.Println("============================")
	fmt.Println()

	if r := result.Receipt; r != nil {
		fmt.Printf("Auction:   %s (parcel %s)\n", r.AuctionID, r.ParcelID)
		if r.HasWinner() {
			fmt.Printf("Winner:    %s at %s, %s due\n", r.Winner, r.FinalPrice, r.AmountDue)
		} else {
			fmt.Println("Winner:    none")
		}
		fmt.Printf("Settled:   %s\n", r.SettledAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Println()
	}

	fmt.Println("Summary:")
	fmt.Printf("  Signature Valid:         %v\n", result.SignatureValid)
	fmt.Printf("  Key ID Match:            %v\n", result.KeyIDMatch)
	fmt.Printf("  Bid Log Valid:           %v\n", result.BidLogValid)
	fmt.Printf("  Bid Log Hash Valid:      %v\n", result.BidLogHashValid)
	fmt.Printf("  Final Price Valid:       %v\n", result.FinalPriceValid)
	fmt.Printf("  Amount Due Valid:        %v\n", result.AmountDueValid)
	fmt.Printf("  Winner Valid:            %v\n", result.WinnerValid)

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("============================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
		fmt.Println("Exit Code: 0")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
		fmt.Println("Exit Code: 1")
	}
}

func outputJSON(result *validation.ReceiptValidationResult) {
	output := map[string]any{
		"valid":              result.IsValid(),
		"signature_valid":    result.SignatureValid,
		"key_id_match":       result.KeyIDMatch,
		"bid_log_valid":      result.BidLogValid,
		"bid_log_hash_valid": result.BidLogHashValid,
		"final_price_valid":  result.FinalPriceValid,
		"amount_due_valid":   result.AmountDueValid,
		"winner_valid":       result.WinnerValid,
		"receipt":            result.Receipt,
		"details":            result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}

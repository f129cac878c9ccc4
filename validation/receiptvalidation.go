package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/openland/landauction/core"
	"github.com/openland/landauction/engineapi"
	"github.com/openland/landauction/receipt"
)

// ReceiptValidationInput contains all inputs needed for settlement receipt validation
type ReceiptValidationInput struct {
	ReceiptCOSEGzip   engineapi.ReceiptCOSEGzip   // Gzipped format from settlement links; takes precedence when set
	ReceiptCOSEBase64 engineapi.ReceiptCOSEBase64 // Base64 format from get_receipt responses
	PublicKeyPEM      string                      // Operator's receipt signing key
	BidLog            []core.Bid                  // Published bid log in sequence order (nil = skip bid log checks)
	BidderID          string
	FinalPrice        *decimal.Decimal // nil = no winner expected, non-nil = winner with this price
	IsWinner          bool             // Expected result for BidderID
}

// ValidateSettlementReceipt validates a signed settlement receipt and verifies:
// - Signature and key id match the operator's public key
// - Published bid log is an intact hash chain that hashes to the receipt
// - Final price matches
// - Amount due is the final price less the winner's deposit
// - Winner/loser determination
//
// Returns:
//   - ReceiptValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed input, unreadable key)
func ValidateSettlementReceipt(input *ReceiptValidationInput) (*ReceiptValidationResult, error) {
	receiptCOSEBase64, err := input.receiptBase64()
	if err != nil {
		return nil, err
	}

	// Perform common receipt validation (signature, key id)
	baseResult, settlement, err := validateCommonReceipt(receiptCOSEBase64, input.PublicKeyPEM)
	if err != nil {
		return nil, err
	}

	result := &ReceiptValidationResult{
		BaseValidationResult: *baseResult,
		Receipt:              settlement,
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Receipt for auction %s (parcel %s), %d bids",
		settlement.AuctionID, settlement.ParcelID, settlement.BidCount))

	result.BidLogValid, result.BidLogHashValid = validateBidLog(input, settlement, result)
	result.FinalPriceValid = validateFinalPrice(input, settlement, result)
	result.AmountDueValid = validateAmountDue(settlement, result)
	result.WinnerValid = validateWinner(input, settlement, result)

	return result, nil
}

func (input *ReceiptValidationInput) receiptBase64() (engineapi.ReceiptCOSEBase64, error) {
	if input.ReceiptCOSEGzip != "" {
		receiptCOSE, err := input.ReceiptCOSEGzip.Decompress()
		if err != nil {
			return "", fmt.Errorf("decompress receipt: %w", err)
		}
		return receiptCOSE.EncodeBase64(), nil
	}
	if input.ReceiptCOSEBase64 == "" {
		return "", fmt.Errorf("no receipt provided")
	}
	return input.ReceiptCOSEBase64, nil
}

func validateBidLog(input *ReceiptValidationInput, settlement *receipt.SettlementReceipt, result *ReceiptValidationResult) (bool, bool) {
	if input.BidLog == nil {
		result.ValidationDetails = append(result.ValidationDetails, "Bid log not provided, skipping hash chain checks")
		return true, true
	}

	logValid := true
	for _, bid := range input.BidLog {
		if bid.AuctionID != settlement.AuctionID {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid %s belongs to auction %s, not %s", bid.ID, bid.AuctionID, settlement.AuctionID))
			logValid = false
			break
		}
	}
	if broken := core.VerifyBidLog(input.BidLog); broken != -1 {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid log hash chain broken at bid #%d (%s)", broken, input.BidLog[broken].ID))
		logValid = false
	} else {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid log hash chain intact: %d bids", len(input.BidLog)))
	}
	if settlement.HasWinner() {
		if len(input.BidLog) == 0 || input.BidLog[len(input.BidLog)-1].ID != settlement.WinningBidID {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winning bid %s is not the last bid in the log", settlement.WinningBidID))
			logValid = false
		}
	}

	hashValid := true
	if len(input.BidLog) != settlement.BidCount {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid count mismatch: log has %d, receipt has %d", len(input.BidLog), settlement.BidCount))
		hashValid = false
	}
	computedHash := core.ComputeBidLogHash(input.BidLog)
	if computedHash == settlement.BidLogHash {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid log hash validation passed: %s", computedHash))
	} else {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid log hash mismatch: computed %s, receipt has %s", computedHash, settlement.BidLogHash))
		hashValid = false
	}

	return logValid, hashValid
}

func validateFinalPrice(input *ReceiptValidationInput, settlement *receipt.SettlementReceipt, result *ReceiptValidationResult) bool {
	if input.FinalPrice == nil {
		// Caller expects no winner
		if !settlement.HasWinner() {
			result.ValidationDetails = append(result.ValidationDetails, "Final price validation passed: no winner expected and no winner in receipt")
			return true
		}
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Final price mismatch: expected no winner, but receipt has winner with price %s", settlement.FinalPrice))
		return false
	}

	if !settlement.HasWinner() {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Final price mismatch: expected winner with price %s, but receipt has no winner", input.FinalPrice.StringFixed(2)))
		return false
	}

	receiptPrice, err := decimal.NewFromString(settlement.FinalPrice)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Final price unreadable: %q", settlement.FinalPrice))
		return false
	}

	if input.FinalPrice.Equal(receiptPrice) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Final price validation passed: %s", settlement.FinalPrice))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Final price mismatch: expected %s, receipt has %s", input.FinalPrice.StringFixed(2), settlement.FinalPrice))
	return false
}

func validateAmountDue(settlement *receipt.SettlementReceipt, result *ReceiptValidationResult) bool {
	if !settlement.HasWinner() {
		if settlement.AmountDue == "" {
			result.ValidationDetails = append(result.ValidationDetails, "Amount due validation passed: nothing owed without a winner")
			return true
		}
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Amount due mismatch: no winner, but receipt asks for %s", settlement.AmountDue))
		return false
	}

	amounts := make([]decimal.Decimal, 3)
	for i, s := range []string{settlement.FinalPrice, settlement.WinnerDeposit, settlement.AmountDue} {
		d, err := decimal.NewFromString(s)
		if err != nil {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Amount due unreadable: %q", s))
			return false
		}
		amounts[i] = d
	}

	expected := core.AmountDue(amounts[0], amounts[1])
	if expected.Equal(amounts[2]) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Amount due validation passed: %s (deposit %s applied)", settlement.AmountDue, settlement.WinnerDeposit))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Amount due mismatch: expected %s, receipt has %s", expected.StringFixed(2), settlement.AmountDue))
	return false
}

func validateWinner(input *ReceiptValidationInput, settlement *receipt.SettlementReceipt, result *ReceiptValidationResult) bool {
	actuallyWon := settlement.HasWinner() && settlement.Winner == input.BidderID

	if input.IsWinner == actuallyWon {
		if actuallyWon {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation passed: %s won as expected (price: %s)", input.BidderID, settlement.FinalPrice))
		} else {
			result.ValidationDetails = append(result.ValidationDetails, "Winner validation passed: bidder lost as expected")
		}
		return true
	}

	if input.IsWinner && !actuallyWon {
		result.ValidationDetails = append(result.ValidationDetails, "Winner validation failed: expected to win, but did not win")
	} else {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation failed: expected to lose, but won with price %s", settlement.FinalPrice))
	}
	return false
}

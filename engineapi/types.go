package engineapi

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Request types accepted by the auction daemon.
const (
	RequestPing                = "ping"
	RequestRegisterBidder      = "register_bidder"
	RequestUpdateRegistration  = "update_registration"
	RequestDeleteRegistration  = "delete_registration"
	RequestReviewRegistration  = "review_registration"
	RequestGetRegistration     = "get_registration"
	RequestListRegistrations   = "list_registrations"
	RequestCreateAuction       = "create_auction"
	RequestUpdateAuction       = "update_auction"
	RequestDeleteAuction       = "delete_auction"
	RequestCancelAuction       = "cancel_auction"
	RequestGetAuction          = "get_auction"
	RequestListAuctions        = "list_auctions"
	RequestSettleAuction       = "settle_auction"
	RequestGetReceipt          = "get_receipt"
	RequestPostDeposit         = "post_deposit"
	RequestConfirmDeposit      = "confirm_deposit"
	RequestReleaseDeposit      = "release_deposit"
	RequestListDeposits        = "list_deposits"
	RequestGetDeposit          = "get_deposit"
	RequestCheckEligibility    = "check_eligibility"
	RequestSubmitBid           = "submit_bid"
	RequestListBids            = "list_bids"
	RequestGetBid              = "get_bid"
	RequestGetBidLog           = "get_bid_log"
	RequestRecordPayment       = "record_payment"
	RequestGetPayment          = "get_payment"
	RequestListPayments        = "list_payments"
	RequestGetReceiptPublicKey = "get_receipt_public_key"
)

// Response types.
const (
	ResponseTypePong   = "pong"
	ResponseTypeError  = "error"
	ResponseTypeResult = "result"
)

// Request is the envelope every daemon request arrives in.
// Payload is decoded into the command struct named by Type.
type Request struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Response is the envelope every daemon reply is written in.
type Response struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse builds a failed Response. kind and reason may be empty for transport errors.
func ErrorResponse(requestID, kind, reason, message string) Response {
	if message == "" {
		message = "request failed"
	}
	return Response{
		Type:      ResponseTypeError,
		RequestID: requestID,
		Success:   false,
		Message:   message,
		ErrorKind: kind,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

// ResultResponse builds a successful Response carrying data.
func ResultResponse(requestID string, data any) Response {
	return Response{
		Type:      ResponseTypeResult,
		RequestID: requestID,
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// ReceiptData is the data of a get_receipt result.
type ReceiptData struct {
	AuctionID         string            `json:"auction_id"`
	KeyID             string            `json:"key_id"`
	ReceiptCOSEBase64 ReceiptCOSEBase64 `json:"receipt_cose_base64"`
	ReceiptCOSEGzip   ReceiptCOSEGzip   `json:"receipt_cose_gzip,omitempty"` // compact form for settlement links
}

// PublicKeyData is the data of a get_receipt_public_key result.
type PublicKeyData struct {
	PublicKey string `json:"public_key"`
	KeyID     string `json:"key_id"`
}

// ReceiptCOSE holds raw COSE_Sign1 bytes of a signed settlement receipt.
type ReceiptCOSE []byte

// ReceiptCOSEBase64 is a base64 (standard or URL-safe) encoding of ReceiptCOSE.
type ReceiptCOSEBase64 string

// EncodeBase64 encodes the receipt with standard base64 for JSON transport.
func (r ReceiptCOSE) EncodeBase64() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.StdEncoding.EncodeToString(r))
}

// EncodeURLSafe encodes the receipt with unpadded URL-safe base64 for query strings.
func (r ReceiptCOSE) EncodeURLSafe() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.RawURLEncoding.EncodeToString(r))
}

func (b ReceiptCOSEBase64) String() string {
	return string(b)
}

// Decode accepts either encoding produced above.
func (b ReceiptCOSEBase64) Decode() (ReceiptCOSE, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return nil, fmt.Errorf("empty receipt")
	}

	if strings.ContainsAny(s, "-_") || !strings.HasSuffix(s, "=") && len(s)%4 != 0 {
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("decode url-safe base64: %w", err)
		}
		return decoded, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return decoded, nil
}

// ReceiptCOSEGzip is a gzip-compressed receipt in unpadded URL-safe base64, short
// enough to hand out in a verification link.
type ReceiptCOSEGzip string

// CompressGzip compresses the receipt for use in URLs.
func (r ReceiptCOSE) CompressGzip() (ReceiptCOSEGzip, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("create gzip writer: %w", err)
	}
	if _, err := gz.Write(r); err != nil {
		return "", fmt.Errorf("gzip receipt: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("close gzip writer: %w", err)
	}
	return ReceiptCOSEGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

// CompressGzip decodes the base64 receipt and compresses it.
func (b ReceiptCOSEBase64) CompressGzip() (ReceiptCOSEGzip, error) {
	if strings.TrimSpace(string(b)) == "" {
		return ReceiptCOSE(nil).CompressGzip()
	}
	raw, err := b.Decode()
	if err != nil {
		return "", err
	}
	return raw.CompressGzip()
}

func (g ReceiptCOSEGzip) String() string {
	return string(g)
}

// Decompress reverses CompressGzip.
func (g ReceiptCOSEGzip) Decompress() (ReceiptCOSE, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(string(g), "="))
	if err != nil {
		return nil, fmt.Errorf("decode base64url: %w", err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("read gzip stream: %w", err)
	}
	return raw, nil
}

package engineapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// EventType is both the event name and its routing key on the bus.
type EventType string

const (
	EventAuctionSettled   EventType = "auction.settled"
	EventPaymentOverdue   EventType = "payment.overdue"
	EventBidAccepted      EventType = "bid.accepted"
	EventAuctionOpened    EventType = "auction.opened"
	EventAuctionClosed    EventType = "auction.closed"
	EventAuctionCancelled EventType = "auction.cancelled"
)

// Event is an outbound notification for fee and contract collaborators.
//
// Payload holds one of the *Event payload structs below. After DecodeEvent it is a
// pointer to the concrete struct matching Type.
type Event struct {
	ID         string    `json:"id" cbor:"id"`
	Type       EventType `json:"type" cbor:"type"`
	AuctionID  string    `json:"auction_id" cbor:"auction_id"`
	OccurredAt time.Time `json:"occurred_at" cbor:"occurred_at"`
	Payload    any       `json:"payload" cbor:"payload"`
}

// AuctionSettledEvent is emitted once per auction at closed -> settled.
// Winner and FinalPrice are empty when the auction settled without bids.
type AuctionSettledEvent struct {
	AuctionID  string      `json:"auction_id" cbor:"auction_id"`
	ParcelID   string      `json:"parcel_id" cbor:"parcel_id"`
	Winner     string      `json:"winner,omitempty" cbor:"winner,omitempty"`
	FinalPrice string      `json:"final_price,omitempty" cbor:"final_price,omitempty"`
	PaymentID  string      `json:"payment_id,omitempty" cbor:"payment_id,omitempty"`
	AmountDue  string      `json:"amount_due,omitempty" cbor:"amount_due,omitempty"`
	DueDate    *time.Time  `json:"due_date,omitempty" cbor:"due_date,omitempty"`
	Receipt    ReceiptCOSE `json:"receipt,omitempty" cbor:"receipt,omitempty"`
	// ReceiptError explains a missing receipt when signing failed.
	ReceiptError string `json:"receipt_error,omitempty" cbor:"receipt_error,omitempty"`
}

// PaymentOverdueEvent is emitted the first time a winning payment is observed past due.
type PaymentOverdueEvent struct {
	PaymentID  string    `json:"payment_id" cbor:"payment_id"`
	AuctionID  string    `json:"auction_id" cbor:"auction_id"`
	WinnerID   string    `json:"winner_id" cbor:"winner_id"`
	Penalty    string    `json:"penalty" cbor:"penalty"`
	AmountOwed string    `json:"amount_owed" cbor:"amount_owed"`
	DueDate    time.Time `json:"due_date" cbor:"due_date"`
}

// BidAcceptedEvent is emitted for every accepted bid.
type BidAcceptedEvent struct {
	AuctionID string    `json:"auction_id" cbor:"auction_id"`
	BidID     string    `json:"bid_id" cbor:"bid_id"`
	BidderID  string    `json:"bidder_id" cbor:"bidder_id"`
	Price     string    `json:"price" cbor:"price"`
	PlacedAt  time.Time `json:"placed_at" cbor:"placed_at"`
	CloseTime time.Time `json:"close_time" cbor:"close_time"`
	Extended  bool      `json:"extended" cbor:"extended"`
}

// AuctionStatusEvent is emitted when an auction opens, closes or is cancelled.
type AuctionStatusEvent struct {
	AuctionID string    `json:"auction_id" cbor:"auction_id"`
	ParcelID  string    `json:"parcel_id" cbor:"parcel_id"`
	Status    string    `json:"status" cbor:"status"`
	CloseTime time.Time `json:"close_time" cbor:"close_time"`
}

// Codec selects the wire encoding of event bodies.
type Codec string

const (
	CodecJSON Codec = "json"
	CodecCBOR Codec = "cbor"
)

// ContentType returns the MIME type of the codec.
func (c Codec) ContentType() string {
	if c == CodecCBOR {
		return "application/cbor"
	}
	return "application/json"
}

// ParseCodec accepts "json", "cbor" or "" (json).
func ParseCodec(s string) (Codec, error) {
	switch Codec(s) {
	case "", CodecJSON:
		return CodecJSON, nil
	case CodecCBOR:
		return CodecCBOR, nil
	default:
		return "", fmt.Errorf("unsupported event codec %q (must be json or cbor)", s)
	}
}

// CodecForContentType maps a message content type back to its codec.
func CodecForContentType(contentType string) Codec {
	if contentType == CodecCBOR.ContentType() {
		return CodecCBOR
	}
	return CodecJSON
}

var eventEncMode, eventDecMode = mustEventModes()

func mustEventModes() (cbor.EncMode, cbor.DecMode) {
	// RFC3339Nano keeps sub-second timestamps intact across a round trip.
	enc, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor dec mode: %v", err))
	}
	return enc, dec
}

// EncodeEvent serializes ev with the given codec.
func EncodeEvent(codec Codec, ev Event) ([]byte, error) {
	switch codec {
	case CodecCBOR:
		data, err := eventEncMode.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("encode cbor event %s: %w", ev.Type, err)
		}
		return data, nil
	case CodecJSON, "":
		data, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("encode json event %s: %w", ev.Type, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported event codec %q", codec)
	}
}

type jsonEnvelope struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	AuctionID  string          `json:"auction_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type cborEnvelope struct {
	ID         string          `cbor:"id"`
	Type       EventType       `cbor:"type"`
	AuctionID  string          `cbor:"auction_id"`
	OccurredAt time.Time       `cbor:"occurred_at"`
	Payload    cbor.RawMessage `cbor:"payload"`
}

// DecodeEvent parses data produced by EncodeEvent with the same codec.
func DecodeEvent(codec Codec, data []byte) (*Event, error) {
	var ev Event
	var raw []byte
	var unmarshal func([]byte, any) error

	switch codec {
	case CodecCBOR:
		var env cborEnvelope
		if err := eventDecMode.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode cbor event: %w", err)
		}
		ev = Event{ID: env.ID, Type: env.Type, AuctionID: env.AuctionID, OccurredAt: env.OccurredAt}
		raw, unmarshal = env.Payload, eventDecMode.Unmarshal
	case CodecJSON, "":
		var env jsonEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode json event: %w", err)
		}
		ev = Event{ID: env.ID, Type: env.Type, AuctionID: env.AuctionID, OccurredAt: env.OccurredAt}
		raw, unmarshal = env.Payload, json.Unmarshal
	default:
		return nil, fmt.Errorf("unsupported event codec %q", codec)
	}

	payload, err := newPayload(ev.Type)
	if err != nil {
		return nil, err
	}
	if err := unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", ev.Type, err)
	}
	ev.Payload = payload
	return &ev, nil
}

func newPayload(t EventType) (any, error) {
	switch t {
	case EventAuctionSettled:
		return &AuctionSettledEvent{}, nil
	case EventPaymentOverdue:
		return &PaymentOverdueEvent{}, nil
	case EventBidAccepted:
		return &BidAcceptedEvent{}, nil
	case EventAuctionOpened, EventAuctionClosed, EventAuctionCancelled:
		return &AuctionStatusEvent{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
}

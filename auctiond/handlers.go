package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/openland/landauction/core"
	"github.com/openland/landauction/engine"
	"github.com/openland/landauction/engineapi"
)

// target names the entity a request acts on.
type target struct {
	AuctionID      string `json:"auction_id,omitempty"`
	BidderID       string `json:"bidder_id,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
	DepositID      string `json:"deposit_id,omitempty"`
	BidID          string `json:"bid_id,omitempty"`
	PaymentID      string `json:"payment_id,omitempty"`
	Remark         string `json:"remark,omitempty"`
}

func (s *Server) dispatch(ctx context.Context, req engineapi.Request) engineapi.Response {
	if req.Type == engineapi.RequestPing {
		log.Printf("INFO: Responding to ping with pong")
		return engineapi.Response{
			Type:      engineapi.ResponseTypePong,
			RequestID: req.RequestID,
			Success:   true,
			Message:   "auction engine is healthy",
			Timestamp: time.Now().UTC(),
		}
	}

	data, err := s.handle(ctx, req)
	if err != nil {
		log.Printf("WARNING: %s request rejected: %v", req.Type, err)
		return engineapi.ErrorResponse(req.RequestID, string(engine.KindOf(err)), string(engine.ReasonOf(err)), err.Error())
	}
	return engineapi.ResultResponse(req.RequestID, data)
}

func (s *Server) handle(ctx context.Context, req engineapi.Request) (any, error) {
	e := s.engine

	switch req.Type {
	case engineapi.RequestRegisterBidder:
		cmd, err := decode[engine.RegisterBidderCommand](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.RegisterBidder(cmd)

	case engineapi.RequestUpdateRegistration:
		cmd, err := decode[engine.UpdateRegistrationCommand](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.UpdateRegistration(cmd)

	case engineapi.RequestDeleteRegistration:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		return deleted(t.RegistrationID, e.DeleteRegistration(t.RegistrationID))

	case engineapi.RequestReviewRegistration:
		cmd, err := decode[engine.ReviewRegistrationCommand](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.ReviewRegistration(cmd)

	case engineapi.RequestGetRegistration:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		if t.RegistrationID == "" && t.BidderID != "" {
			return e.GetRegistrationByBidder(t.BidderID)
		}
		return e.GetRegistration(t.RegistrationID)

	case engineapi.RequestListRegistrations:
		filter, err := decode[engine.RegistrationFilter](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.ListRegistrations(filter)

	case engineapi.RequestCreateAuction:
		cmd, err := decode[engine.CreateAuctionCommand](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.CreateAuction(cmd)

	case engineapi.RequestUpdateAuction:
		cmd, err := decode[engine.UpdateAuctionCommand](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.UpdateAuction(ctx, cmd)

	case engineapi.RequestDeleteAuction:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		return deleted(t.AuctionID, e.DeleteAuction(ctx, t.AuctionID))

	case engineapi.RequestCancelAuction:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.CancelAuction(ctx, t.AuctionID, t.Remark)

	case engineapi.RequestGetAuction:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.GetAuction(ctx, t.AuctionID)

	case engineapi.RequestListAuctions:
		filter, err := decode[engine.AuctionFilter](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.ListAuctions(ctx, filter)

	case engineapi.RequestSettleAuction:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.SettleAuction(ctx, t.AuctionID)

	case engineapi.RequestGetReceipt:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		return s.receipt(ctx, t.AuctionID)

	case engineapi.RequestGetReceiptPublicKey:
		return s.publicKey()

	case engineapi.RequestPostDeposit:
		cmd, err := decode[engine.PostDepositCommand](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.PostDeposit(ctx, cmd)

	case engineapi.RequestConfirmDeposit:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.ConfirmDeposit(ctx, t.DepositID)

	case engineapi.RequestReleaseDeposit:
		cmd, err := decode[engine.ReleaseDepositCommand](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.ReleaseDeposit(ctx, cmd)

	case engineapi.RequestGetDeposit:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.GetDeposit(ctx, t.DepositID)

	case engineapi.RequestListDeposits:
		filter, err := decode[engine.DepositFilter](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.ListDeposits(ctx, filter)

	case engineapi.RequestCheckEligibility:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.CheckEligibility(ctx, t.AuctionID, t.BidderID)

	case engineapi.RequestSubmitBid:
		cmd, err := decode[engine.SubmitBidCommand](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.SubmitBid(ctx, cmd)

	case engineapi.RequestListBids:
		filter, err := decode[engine.BidFilter](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.ListBids(ctx, filter)

	case engineapi.RequestGetBid:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.GetBid(ctx, t.BidID)

	case engineapi.RequestGetBidLog:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.BidLog(ctx, t.AuctionID)

	case engineapi.RequestRecordPayment:
		cmd, err := decode[engine.RecordPaymentCommand](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.RecordPayment(ctx, cmd)

	case engineapi.RequestGetPayment:
		t, err := decode[target](req.Payload)
		if err != nil {
			return nil, err
		}
		if t.PaymentID == "" && t.AuctionID != "" {
			return e.PaymentForAuction(ctx, t.AuctionID)
		}
		return e.GetPayment(ctx, t.PaymentID)

	case engineapi.RequestListPayments:
		filter, err := decode[engine.PaymentFilter](req.Payload)
		if err != nil {
			return nil, err
		}
		return e.ListPayments(ctx, filter)

	default:
		return nil, invalidRequest("unknown request type: %s", req.Type)
	}
}

func (s *Server) receipt(ctx context.Context, auctionID string) (*engineapi.ReceiptData, error) {
	signed, err := s.engine.Receipt(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	compressed, err := signed.CompressGzip()
	if err != nil {
		return nil, fmt.Errorf("compress receipt: %w", err)
	}

	data := &engineapi.ReceiptData{
		AuctionID:         auctionID,
		ReceiptCOSEBase64: signed.EncodeBase64(),
		ReceiptCOSEGzip:   compressed,
	}
	if s.keys != nil {
		data.KeyID = s.keys.KeyID()
	}
	return data, nil
}

func (s *Server) publicKey() (*engineapi.PublicKeyData, error) {
	if s.keys == nil {
		return nil, invalidRequest("receipt signing is not configured")
	}
	pemStr, err := s.keys.PublicKeyPEM()
	if err != nil {
		return nil, err
	}
	return &engineapi.PublicKeyData{PublicKey: pemStr, KeyID: s.keys.KeyID()}, nil
}

// decode unmarshals a request payload; an absent payload decodes to the zero value.
func decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, invalidRequest("decode payload: %v", err)
	}
	return v, nil
}

func deleted(id string, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return map[string]string{"deleted": id}, nil
}

func invalidRequest(format string, args ...any) error {
	return &engine.Error{
		Kind:    core.KindInput,
		Reason:  core.ReasonInvalidCommand,
		Message: fmt.Sprintf(format, args...),
	}
}

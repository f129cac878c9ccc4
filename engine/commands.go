package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openland/landauction/core"
)

// RegisterBidderCommand submits a bidder's identity for review.
type RegisterBidderCommand struct {
	BidderID        string        `json:"bidder_id" validate:"required,max=64"`
	UserType        core.UserType `json:"user_type" validate:"required,oneof=contractor administrator"`
	RealName        string        `json:"real_name" validate:"required,max=64"`
	NationalID      string        `json:"national_id" validate:"required,alphanum,min=15,max=18"`
	Phone           string        `json:"phone" validate:"required,numeric,min=7,max=20"`
	Address         string        `json:"address" validate:"required,max=256"`
	BusinessLicense string        `json:"business_license,omitempty" validate:"omitempty,max=64"`
}

// UpdateRegistrationCommand replaces the identity of a registration still pending review.
type UpdateRegistrationCommand struct {
	RegistrationID  string        `json:"registration_id" validate:"required"`
	UserType        core.UserType `json:"user_type" validate:"required,oneof=contractor administrator"`
	RealName        string        `json:"real_name" validate:"required,max=64"`
	NationalID      string        `json:"national_id" validate:"required,alphanum,min=15,max=18"`
	Phone           string        `json:"phone" validate:"required,numeric,min=7,max=20"`
	Address         string        `json:"address" validate:"required,max=256"`
	BusinessLicense string        `json:"business_license,omitempty" validate:"omitempty,max=64"`
}

// ReviewRegistrationCommand records the outcome of the external identity review.
type ReviewRegistrationCommand struct {
	RegistrationID string                  `json:"registration_id" validate:"required"`
	Decision       core.RegistrationStatus `json:"decision" validate:"required,oneof=approved rejected"`
	Remark         string                  `json:"remark,omitempty" validate:"max=256"`
}

// CreateAuctionCommand schedules a new auction for a land parcel.
type CreateAuctionCommand struct {
	ParcelID      string          `json:"parcel_id" validate:"required,max=64"`
	Title         string          `json:"title" validate:"required,max=128"`
	Description   string          `json:"description,omitempty" validate:"max=2048"`
	StartingPrice decimal.Decimal `json:"starting_price" validate:"required,gt=0"`
	Increment     decimal.Decimal `json:"increment" validate:"required,gt=0"`
	DepositAmount decimal.Decimal `json:"deposit_amount" validate:"required,gt=0"`
	OpenTime      time.Time       `json:"open_time" validate:"required"`
	CloseTime     time.Time       `json:"close_time" validate:"required,gtfield=OpenTime"`
}

// UpdateAuctionCommand replaces the terms of an auction that has not opened.
type UpdateAuctionCommand struct {
	AuctionID     string          `json:"auction_id" validate:"required"`
	Title         string          `json:"title" validate:"required,max=128"`
	Description   string          `json:"description,omitempty" validate:"max=2048"`
	StartingPrice decimal.Decimal `json:"starting_price" validate:"required,gt=0"`
	Increment     decimal.Decimal `json:"increment" validate:"required,gt=0"`
	DepositAmount decimal.Decimal `json:"deposit_amount" validate:"required,gt=0"`
	OpenTime      time.Time       `json:"open_time" validate:"required"`
	CloseTime     time.Time       `json:"close_time" validate:"required,gtfield=OpenTime"`
}

// PostDepositCommand records a bidder's deposit as pending capture.
type PostDepositCommand struct {
	AuctionID string          `json:"auction_id" validate:"required"`
	BidderID  string          `json:"bidder_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

// ReleaseDepositCommand returns or retains a deposit after the auction ends.
type ReleaseDepositCommand struct {
	DepositID string             `json:"deposit_id" validate:"required"`
	Outcome   core.DepositStatus `json:"outcome" validate:"required,oneof=refunded forfeited"`
	Remark    string             `json:"remark,omitempty" validate:"max=256"`
}

// SubmitBidCommand offers a price on an open auction.
type SubmitBidCommand struct {
	AuctionID string          `json:"auction_id" validate:"required"`
	BidderID  string          `json:"bidder_id" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"required,gt=0"`
}

// RecordPaymentCommand applies a captured payment to a winning payment.
type RecordPaymentCommand struct {
	PaymentID string          `json:"payment_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

// RegistrationFilter narrows ListRegistrations. Zero fields match everything.
type RegistrationFilter struct {
	Status core.RegistrationStatus `json:"status,omitempty" validate:"omitempty,oneof=pending approved rejected"`
}

// AuctionFilter narrows ListAuctions. OpenFrom and CloseTo bound the schedule inclusively.
type AuctionFilter struct {
	ParcelID string             `json:"parcel_id,omitempty"`
	Status   core.AuctionStatus `json:"status,omitempty" validate:"omitempty,oneof=scheduled open closed settled cancelled"`
	OpenFrom *time.Time         `json:"open_from,omitempty"`
	CloseTo  *time.Time         `json:"close_to,omitempty"`
}

// DepositFilter narrows ListDeposits.
type DepositFilter struct {
	AuctionID string             `json:"auction_id,omitempty"`
	BidderID  string             `json:"bidder_id,omitempty"`
	Status    core.DepositStatus `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed refunded forfeited"`
}

// BidFilter narrows ListBids to one auction, optionally one bidder.
type BidFilter struct {
	AuctionID string `json:"auction_id" validate:"required"`
	BidderID  string `json:"bidder_id,omitempty"`
}

// PaymentFilter narrows ListPayments. Status matches the status derived at read time.
type PaymentFilter struct {
	AuctionID string             `json:"auction_id,omitempty"`
	WinnerID  string             `json:"winner_id,omitempty"`
	Status    core.PaymentStatus `json:"status,omitempty" validate:"omitempty,oneof=pending partial paid overdue"`
}

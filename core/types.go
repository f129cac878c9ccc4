package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegistrationStatus is the review state of a bidder registration.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// UserType distinguishes contracting households from administrators bidding on behalf of a collective.
type UserType string

const (
	UserTypeContractor    UserType = "contractor"
	UserTypeAdministrator UserType = "administrator"
)

// BidderRegistration is a bidder's identity as submitted for review.
type BidderRegistration struct {
	ID              string             `json:"id"`
	BidderID        string             `json:"bidder_id"`
	UserType        UserType           `json:"user_type"`
	RealName        string             `json:"real_name"`
	NationalID      string             `json:"national_id"`
	Phone           string             `json:"phone"`
	Address         string             `json:"address"`
	BusinessLicense string             `json:"business_license,omitempty"`
	Status          RegistrationStatus `json:"status"`
	ReviewedAt      *time.Time         `json:"reviewed_at,omitempty"`
	ReviewRemark    string             `json:"review_remark,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	AuctionScheduled AuctionStatus = "scheduled"
	AuctionOpen      AuctionStatus = "open"
	AuctionClosed    AuctionStatus = "closed"
	AuctionSettled   AuctionStatus = "settled"
	AuctionCancelled AuctionStatus = "cancelled"
)

// IsTerminal reports whether no further transition can leave this state.
func (s AuctionStatus) IsTerminal() bool {
	return s == AuctionSettled || s == AuctionCancelled
}

// Auction is a scheduled sale of the use rights of one land parcel.
//
// CurrentPrice starts at StartingPrice with no Leader; the first acceptable bid is
// StartingPrice + Increment. FinalPrice and Winner are set once, at settlement.
type Auction struct {
	ID            string          `json:"id"`
	ParcelID      string          `json:"parcel_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	Increment     decimal.Decimal `json:"increment"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
	OpenTime      time.Time       `json:"open_time"`
	CloseTime     time.Time       `json:"close_time"`
	Status        AuctionStatus   `json:"status"`

	CurrentPrice decimal.Decimal `json:"current_price"`
	Leader       string          `json:"leader,omitempty"`
	LeadingBidID string          `json:"leading_bid_id,omitempty"`
	LastBidAt    time.Time       `json:"last_bid_at,omitempty"`
	BidCount     int             `json:"bid_count"`
	Extensions   int             `json:"extensions"`

	Winner     string              `json:"winner,omitempty"`
	FinalPrice decimal.NullDecimal `json:"final_price"`
	SettledAt  *time.Time          `json:"settled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasLeader reports whether any bid has been accepted.
func (a *Auction) HasLeader() bool {
	return a.LeadingBidID != ""
}

// DepositKind records the last money movement of a deposit.
type DepositKind string

const (
	DepositKindPosted    DepositKind = "posted"
	DepositKindRefunded  DepositKind = "refunded"
	DepositKindForfeited DepositKind = "forfeited"
)

// DepositStatus is the escrow state of a deposit.
type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositConfirmed DepositStatus = "confirmed"
	DepositRefunded  DepositStatus = "refunded"
	DepositForfeited DepositStatus = "forfeited"
)

// Deposit is money a bidder escrows against one auction.
type Deposit struct {
	ID        string          `json:"id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      DepositKind     `json:"kind"`
	Status    DepositStatus   `json:"status"`
	Remark    string          `json:"remark,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsActive reports whether the deposit is still held (pending or confirmed).
func (d *Deposit) IsActive() bool {
	return d.Status == DepositPending || d.Status == DepositConfirmed
}

// BidValidity tracks whether a recorded bid still leads.
type BidValidity string

const (
	BidValid      BidValidity = "valid"
	BidSuperseded BidValidity = "superseded"
	BidWinning    BidValidity = "winning"
)

// Bid is an accepted price offer. Rejected offers are never recorded.
type Bid struct {
	ID        string          `json:"id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Price     decimal.Decimal `json:"price"`
	PlacedAt  time.Time       `json:"placed_at"`
	Sequence  int64           `json:"sequence"`
	Validity  BidValidity     `json:"validity"`
	Hash      string          `json:"hash"`
}

// PaymentStatus is the state of the winner's balance payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

// WinningPayment is the winner's obligation after settlement.
// Penalty is derived at read time and never accumulated in place.
type WinningPayment struct {
	ID          string          `json:"id"`
	AuctionID   string          `json:"auction_id"`
	WinnerID    string          `json:"winner_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	DueDate     time.Time       `json:"due_date"`
	Status      PaymentStatus   `json:"status"`
	Penalty     decimal.Decimal `json:"penalty"`
	AmountOwed  decimal.Decimal `json:"amount_owed"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

package engine

import (
	"log"
	"sort"
	"sync"

	"github.com/openland/landauction/core"
)

// registry holds bidder registrations. It has its own lock because registrations are
// shared by every auction; auction turns only ever take its read lock.
type registry struct {
	mu       sync.RWMutex
	byID     map[string]*core.BidderRegistration
	byBidder map[string]string // bidder id -> registration id
}

func newRegistry() *registry {
	return &registry{
		byID:     make(map[string]*core.BidderRegistration),
		byBidder: make(map[string]string),
	}
}

// forBidder returns a copy of the bidder's registration, or nil.
func (r *registry) forBidder(bidderID string) *core.BidderRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byBidder[bidderID]
	if !ok {
		return nil
	}
	reg := *r.byID[id]
	return &reg
}

// RegisterBidder submits a registration in pending status. A bidder registers once.
func (e *Engine) RegisterBidder(cmd RegisterBidderCommand) (*core.BidderRegistration, error) {
	if err := e.validate.check(cmd); err != nil {
		return nil, err
	}

	r := e.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byBidder[cmd.BidderID]; ok {
		return nil, reject(core.ReasonDuplicateRegistration, "bidder %s already has registration %s", cmd.BidderID, existing)
	}

	reg := &core.BidderRegistration{
		ID:              newID(),
		BidderID:        cmd.BidderID,
		UserType:        cmd.UserType,
		RealName:        cmd.RealName,
		NationalID:      cmd.NationalID,
		Phone:           cmd.Phone,
		Address:         cmd.Address,
		BusinessLicense: cmd.BusinessLicense,
		Status:          core.RegistrationPending,
		CreatedAt:       e.cfg.Clock.Now(),
	}
	r.byID[reg.ID] = reg
	r.byBidder[reg.BidderID] = reg.ID

	log.Printf("INFO: Registered bidder %s (registration %s, pending review)", reg.BidderID, reg.ID)
	out := *reg
	return &out, nil
}

// UpdateRegistration replaces the identity fields of a pending registration.
func (e *Engine) UpdateRegistration(cmd UpdateRegistrationCommand) (*core.BidderRegistration, error) {
	if err := e.validate.check(cmd); err != nil {
		return nil, err
	}

	r := e.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byID[cmd.RegistrationID]
	if !ok {
		return nil, reject(core.ReasonUnknownRegistration, "registration %s not found", cmd.RegistrationID)
	}
	if reg.Status != core.RegistrationPending {
		return nil, reject(core.ReasonRegistrationReviewed, "registration %s is %s", reg.ID, reg.Status)
	}

	reg.UserType = cmd.UserType
	reg.RealName = cmd.RealName
	reg.NationalID = cmd.NationalID
	reg.Phone = cmd.Phone
	reg.Address = cmd.Address
	reg.BusinessLicense = cmd.BusinessLicense

	out := *reg
	return &out, nil
}

// DeleteRegistration withdraws a registration that has not been reviewed.
func (e *Engine) DeleteRegistration(registrationID string) error {
	r := e.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byID[registrationID]
	if !ok {
		return reject(core.ReasonUnknownRegistration, "registration %s not found", registrationID)
	}
	if reg.Status != core.RegistrationPending {
		return reject(core.ReasonRegistrationReviewed, "registration %s is %s", reg.ID, reg.Status)
	}

	delete(r.byID, reg.ID)
	delete(r.byBidder, reg.BidderID)
	log.Printf("INFO: Deleted pending registration %s for bidder %s", reg.ID, reg.BidderID)
	return nil
}

// ReviewRegistration records the approve/reject outcome. Only pending registrations
// can be reviewed, and a reviewed registration is never deleted.
func (e *Engine) ReviewRegistration(cmd ReviewRegistrationCommand) (*core.BidderRegistration, error) {
	if err := e.validate.check(cmd); err != nil {
		return nil, err
	}

	r := e.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byID[cmd.RegistrationID]
	if !ok {
		return nil, reject(core.ReasonUnknownRegistration, "registration %s not found", cmd.RegistrationID)
	}
	if reg.Status != core.RegistrationPending {
		return nil, reject(core.ReasonRegistrationReviewed, "registration %s is %s", reg.ID, reg.Status)
	}

	now := e.cfg.Clock.Now()
	reg.Status = cmd.Decision
	reg.ReviewedAt = &now
	reg.ReviewRemark = cmd.Remark

	log.Printf("INFO: Registration %s for bidder %s %s", reg.ID, reg.BidderID, reg.Status)
	out := *reg
	return &out, nil
}

// GetRegistration returns a registration by id.
func (e *Engine) GetRegistration(registrationID string) (*core.BidderRegistration, error) {
	r := e.registry
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byID[registrationID]
	if !ok {
		return nil, reject(core.ReasonUnknownRegistration, "registration %s not found", registrationID)
	}
	out := *reg
	return &out, nil
}

// GetRegistrationByBidder returns the registration of a bidder.
func (e *Engine) GetRegistrationByBidder(bidderID string) (*core.BidderRegistration, error) {
	reg := e.registry.forBidder(bidderID)
	if reg == nil {
		return nil, reject(core.ReasonUnknownBidder, "bidder %s is not registered", bidderID)
	}
	return reg, nil
}

// ListRegistrations returns registrations matching filter, newest first.
func (e *Engine) ListRegistrations(filter RegistrationFilter) ([]core.BidderRegistration, error) {
	if err := e.validate.check(filter); err != nil {
		return nil, err
	}

	r := e.registry
	r.mu.RLock()
	out := make([]core.BidderRegistration, 0, len(r.byID))
	for _, reg := range r.byID {
		if filter.Status != "" && reg.Status != filter.Status {
			continue
		}
		out = append(out, *reg)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListApprovedRegistrations returns every approved bidder, newest first.
func (e *Engine) ListApprovedRegistrations() []core.BidderRegistration {
	out, _ := e.ListRegistrations(RegistrationFilter{Status: core.RegistrationApproved})
	return out
}

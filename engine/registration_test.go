package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/openland/landauction/core"
)

func TestRegisterBidder(t *testing.T) {
	h := newHarness(t)

	reg, err := h.engine.RegisterBidder(registerCommand("bidder_x"))
	assert.NoError(t, err)
	check.Equal(t, core.RegistrationPending, reg.Status)
	check.Equal(t, "bidder_x", reg.BidderID)
	check.True(t, reg.ReviewedAt == nil)

	_, err = h.engine.RegisterBidder(registerCommand("bidder_x"))
	check.Equal(t, core.ReasonDuplicateRegistration, ReasonOf(err))

	byBidder, err := h.engine.GetRegistrationByBidder("bidder_x")
	assert.NoError(t, err)
	check.Equal(t, reg.ID, byBidder.ID)

	_, err = h.engine.GetRegistrationByBidder("bidder_y")
	check.Equal(t, core.ReasonUnknownBidder, ReasonOf(err))
}

func TestRegisterBidder_ValidationMessages(t *testing.T) {
	h := newHarness(t)

	cmd := registerCommand("bidder_x")
	cmd.NationalID = "1101-0119"
	cmd.Phone = ""
	cmd.UserType = "landlord"
	_, err := h.engine.RegisterBidder(cmd)
	assert.Error(t, err)
	check.Equal(t, core.ReasonInvalidCommand, ReasonOf(err))

	msg := err.Error()
	check.True(t, strings.Contains(msg, "'user_type': must be one of [contractor administrator]"))
	check.True(t, strings.Contains(msg, "'national_id': must contain only letters and digits"))
	check.True(t, strings.Contains(msg, "'phone': is required"))

	cmd = registerCommand("bidder_x")
	cmd.NationalID = "11010119900307"
	_, err = h.engine.RegisterBidder(cmd)
	assert.Error(t, err)
	check.True(t, strings.Contains(err.Error(), "'national_id': must be at least 15 characters"))
}

func TestReviewRegistration(t *testing.T) {
	h := newHarness(t)
	reg, err := h.engine.RegisterBidder(registerCommand("bidder_x"))
	assert.NoError(t, err)

	h.clock.Advance(time.Hour)
	reviewed, err := h.engine.ReviewRegistration(ReviewRegistrationCommand{
		RegistrationID: reg.ID,
		Decision:       core.RegistrationRejected,
		Remark:         "national id does not match household register",
	})
	assert.NoError(t, err)
	check.Equal(t, core.RegistrationRejected, reviewed.Status)
	assert.NotNil(t, reviewed.ReviewedAt)
	check.Equal(t, t0.Add(time.Hour), *reviewed.ReviewedAt)

	_, err = h.engine.ReviewRegistration(ReviewRegistrationCommand{RegistrationID: reg.ID, Decision: core.RegistrationApproved})
	check.Equal(t, core.ReasonRegistrationReviewed, ReasonOf(err))

	_, err = h.engine.ReviewRegistration(ReviewRegistrationCommand{RegistrationID: reg.ID, Decision: core.RegistrationPending})
	check.Equal(t, core.ReasonInvalidCommand, ReasonOf(err))

	// Reviewed registrations are frozen
	_, err = h.engine.UpdateRegistration(UpdateRegistrationCommand{
		RegistrationID: reg.ID,
		UserType:       core.UserTypeContractor,
		RealName:       "Zhang Wei",
		NationalID:     "110101199003074578",
		Phone:          "13800138000",
		Address:        "Group 3, Xinhe Village",
	})
	check.Equal(t, core.ReasonRegistrationReviewed, ReasonOf(err))
	check.Equal(t, core.ReasonRegistrationReviewed, ReasonOf(h.engine.DeleteRegistration(reg.ID)))
}

func TestUpdateAndDeletePendingRegistration(t *testing.T) {
	h := newHarness(t)
	reg, err := h.engine.RegisterBidder(registerCommand("bidder_x"))
	assert.NoError(t, err)

	updated, err := h.engine.UpdateRegistration(UpdateRegistrationCommand{
		RegistrationID:  reg.ID,
		UserType:        core.UserTypeAdministrator,
		RealName:        "Xinhe Village Collective",
		NationalID:      "91110101MA01ABCD2X",
		Phone:           "01088886666",
		Address:         "Xinhe Village Committee",
		BusinessLicense: "91110101MA01ABCD2X",
	})
	assert.NoError(t, err)
	check.Equal(t, core.UserTypeAdministrator, updated.UserType)
	check.Equal(t, "91110101MA01ABCD2X", updated.BusinessLicense)

	assert.NoError(t, h.engine.DeleteRegistration(reg.ID))
	_, err = h.engine.GetRegistration(reg.ID)
	check.Equal(t, core.ReasonUnknownRegistration, ReasonOf(err))

	// The bidder can register again after withdrawing
	_, err = h.engine.RegisterBidder(registerCommand("bidder_x"))
	assert.NoError(t, err)
}

func TestListRegistrations(t *testing.T) {
	h := newHarness(t)
	h.approve("bidder_x")
	h.clock.Advance(time.Minute)
	h.approve("bidder_y")
	h.clock.Advance(time.Minute)
	_, err := h.engine.RegisterBidder(registerCommand("bidder_z"))
	assert.NoError(t, err)

	all, err := h.engine.ListRegistrations(RegistrationFilter{})
	assert.NoError(t, err)
	assert.Equal(t, 3, len(all))
	check.Equal(t, "bidder_z", all[0].BidderID)

	approved := h.engine.ListApprovedRegistrations()
	assert.Equal(t, 2, len(approved))
	check.Equal(t, "bidder_y", approved[0].BidderID)
	check.Equal(t, "bidder_x", approved[1].BidderID)
}

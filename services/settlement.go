package services

import (
	"math"
	"time"

	"github.com/anjiri1684/counsel_hub/apperrors"
	config "github.com/anjiri1684/counsel_hub/configs"
)

// Now is the clock used by every booking rule.
var Now = func() time.Time { return time.Now().UTC() }

// Settlement splits a captured payment between client, counselor and platform.
// All amounts are minor units.
type Settlement struct {
	Gross           int64 `json:"gross"`
	ProviderFee     int64 `json:"provider_fee"`
	Refund          int64 `json:"refund"`
	Retained        int64 `json:"retained"`
	PlatformFee     int64 `json:"platform_fee"`
	CounselorPayout int64 `json:"counselor_payout"`
	PlatformNet     int64 `json:"platform_net"`
}

// CommissionBps converts a fractional rate such as 0.2 into basis points.
func CommissionBps(rate float64) int64 {
	return int64(math.Round(rate * 10000))
}

// ConfiguredCommissionBps reads PLATFORM_COMMISSION_RATE.
func ConfiguredCommissionBps() int64 {
	return CommissionBps(config.Float("PLATFORM_COMMISSION_RATE"))
}

// ComputeSettlement is the single place fee, payout and refund arithmetic
// happens. Commission is charged on the amount left after the refund. The
// provider's processing fee is absorbed by the platform.
func ComputeSettlement(gross, providerFee, commissionBps, refund int64) (Settlement, error) {
	switch {
	case gross < 0 || providerFee < 0 || refund < 0:
		return Settlement{}, apperrors.BadRequest("amounts must not be negative")
	case commissionBps < 0 || commissionBps > 10000:
		return Settlement{}, apperrors.BadRequest("commission must be between 0 and 100 percent")
	case refund > gross:
		return Settlement{}, apperrors.BadRequest("refund of %d exceeds the amount paid (%d)", refund, gross)
	}

	retained := gross - refund
	platformFee := (retained*commissionBps + 5000) / 10000
	return Settlement{
		Gross:           gross,
		ProviderFee:     providerFee,
		Refund:          refund,
		Retained:        retained,
		PlatformFee:     platformFee,
		CounselorPayout: retained - platformFee,
		PlatformNet:     platformFee - providerFee,
	}, nil
}

// CancellationRefund applies the cancellation policy: counselors always
// refund in full, clients get a full refund when cancelling at least
// fullWindow ahead and lateRate of the amount otherwise.
func CancellationRefund(amount int64, startsAt, now time.Time, cancelledBy string, fullWindow time.Duration, lateRate float64) (int64, error) {
	if !now.Before(startsAt) {
		return 0, apperrors.BadRequest("Session has already started and can no longer be cancelled")
	}
	if cancelledBy != "client" || startsAt.Sub(now) >= fullWindow {
		return amount, nil
	}
	return int64(math.Round(float64(amount) * lateRate)), nil
}

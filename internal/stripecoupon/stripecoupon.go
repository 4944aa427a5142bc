// Package stripecoupon is the Stripe-backed reward issuer: a one-shot coupon
// plus a promotion code carrying our generated code string. Interchangeable
// with the WooCommerce issuer via the reward.provider config switch.
package stripecoupon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/toni86moon/telegram-bot/entity"
	"github.com/toni86moon/telegram-bot/lib/sl"
)

type StripeClient struct {
	sc  *client.API
	log *slog.Logger
}

func New(apiKey string, logger *slog.Logger) *StripeClient {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &StripeClient{
		sc:  sc,
		log: logger.With(sl.Module("stripe")),
	}
}

func (s *StripeClient) IssueDiscountCode(ctx context.Context, userId int64, percent int64, expiry time.Time) (string, error) {
	code := entity.NewRewardCode()
	log := s.log.With(
		sl.User(userId),
		slog.String("code", code),
	)

	couponParams := &stripe.CouponParams{
		Params:         stripe.Params{Context: ctx},
		PercentOff:     stripe.Float64(float64(percent)),
		Duration:       stripe.String(string(stripe.CouponDurationOnce)),
		MaxRedemptions: stripe.Int64(1),
	}
	if !expiry.IsZero() {
		couponParams.RedeemBy = stripe.Int64(expiry.Unix())
	}
	coupon, err := s.sc.Coupons.New(couponParams)
	if err != nil {
		log.Warn("coupon creation failed", sl.Err(err))
		return "", fmt.Errorf("%w: %v", entity.ErrIssuanceFailed, err)
	}

	promoParams := &stripe.PromotionCodeParams{
		Params:         stripe.Params{Context: ctx},
		Coupon:         stripe.String(coupon.ID),
		Code:           stripe.String(code),
		MaxRedemptions: stripe.Int64(1),
	}
	promo, err := s.sc.PromotionCodes.New(promoParams)
	if err != nil {
		log.Warn("promotion code creation failed", sl.Err(err))
		return "", fmt.Errorf("%w: %v", entity.ErrIssuanceFailed, err)
	}

	log.Debug("promotion code created")
	return promo.Code, nil
}

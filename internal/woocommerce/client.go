// Package woocommerce is the coupon provider boundary. It only knows how to
// issue one single-use percentage discount; every transport problem fails
// with entity.ErrIssuanceFailed and never unwinds a recorded completion.
package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/toni86moon/telegram-bot/entity"
	"github.com/toni86moon/telegram-bot/lib/sl"
)

type Config struct {
	ApiUrl string
	Key    string
	Secret string
}

type Client struct {
	hc      *http.Client
	baseURL string
	key     string
	secret  string
	log     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		hc:      &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimSuffix(cfg.ApiUrl, "/"),
		key:     cfg.Key,
		secret:  cfg.Secret,
		log:     logger.With(sl.Module("woocommerce")),
	}
}

type couponRequest struct {
	Code              string `json:"code"`
	DiscountType      string `json:"discount_type"`
	Amount            string `json:"amount"`
	IndividualUse     bool   `json:"individual_use"`
	UsageLimit        int    `json:"usage_limit"`
	UsageLimitPerUser int    `json:"usage_limit_per_user"`
	DateExpires       string `json:"date_expires,omitempty"`
}

type couponResponse struct {
	Id   int64  `json:"id"`
	Code string `json:"code"`
}

// IssueDiscountCode registers a freshly generated single-use code with the
// shop and returns it. A zero expiry means the code never expires.
func (c *Client) IssueDiscountCode(ctx context.Context, userId int64, percent int64, expiry time.Time) (string, error) {
	code := entity.NewRewardCode()
	log := c.log.With(
		sl.User(userId),
		slog.String("code", code),
	)

	payload := couponRequest{
		Code:              code,
		DiscountType:      "percent",
		Amount:            strconv.FormatInt(percent, 10),
		IndividualUse:     true,
		UsageLimit:        1,
		UsageLimitPerUser: 1,
	}
	if !expiry.IsZero() {
		payload.DateExpires = expiry.UTC().Format(time.RFC3339)
	}

	body, err := c.request(ctx, "/coupons", payload)
	if err != nil {
		log.Warn("coupon creation failed", sl.Err(err))
		return "", fmt.Errorf("%w: %v", entity.ErrIssuanceFailed, err)
	}

	var created couponResponse
	if err = json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", entity.ErrIssuanceFailed, err)
	}
	if created.Code == "" {
		return "", fmt.Errorf("%w: shop returned no code", entity.ErrIssuanceFailed)
	}

	log.Debug("coupon created")
	return created.Code, nil
}

// request sends an authenticated POST to the shop REST API.
func (c *Client) request(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.key, c.secret)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("woocommerce %s: %s", resp.Status, body)
	}
	return body, nil
}

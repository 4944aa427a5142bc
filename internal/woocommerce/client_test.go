package woocommerce

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/toni86moon/telegram-bot/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{ApiUrl: server.URL, Key: "ck_test", Secret: "cs_test"}, testLogger())
}

func TestIssueDiscountCode(t *testing.T) {
	var received couponRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ck_test" || pass != "cs_test" {
			t.Errorf("basic auth not sent")
		}
		if r.URL.Path != "/coupons" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":42,"code":"` + received.Code + `"}`))
	})

	expiry := time.Date(2026, 9, 26, 0, 0, 0, 0, time.UTC)
	code, err := client.IssueDiscountCode(context.Background(), 100, 10, expiry)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(code, "ENGAGE") {
		t.Errorf("unexpected code %q", code)
	}

	if received.DiscountType != "percent" || received.Amount != "10" {
		t.Errorf("unexpected discount: %s %s", received.DiscountType, received.Amount)
	}
	if received.UsageLimit != 1 || received.UsageLimitPerUser != 1 || !received.IndividualUse {
		t.Errorf("coupon is not single-use: %+v", received)
	}
	if received.DateExpires != "2026-09-26T00:00:00Z" {
		t.Errorf("unexpected expiry %q", received.DateExpires)
	}
}

func TestIssueDiscountCodeNoExpiry(t *testing.T) {
	var received couponRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_, _ = w.Write([]byte(`{"id":1,"code":"` + received.Code + `"}`))
	})

	if _, err := client.IssueDiscountCode(context.Background(), 100, 10, time.Time{}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if received.DateExpires != "" {
		t.Errorf("expected no expiry, got %q", received.DateExpires)
	}
}

func TestIssueDiscountCodeFailure(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"auth rejected": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
		"broken body": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		},
		"empty code": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"id":7}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			client := testClient(t, handler)
			_, err := client.IssueDiscountCode(context.Background(), 100, 10, time.Time{})
			if !errors.Is(err, entity.ErrIssuanceFailed) {
				t.Errorf("expected ErrIssuanceFailed, got %v", err)
			}
		})
	}
}

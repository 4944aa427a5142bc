package instagram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/toni86moon/telegram-bot/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShortcodeFromRef(t *testing.T) {
	cases := map[string]string{
		"Cxyz123":                               "Cxyz123",
		"https://www.instagram.com/p/Cxyz123/":  "Cxyz123",
		"https://www.instagram.com/reel/Cab42/": "Cab42",
		"  Cxyz123  ":                           "Cxyz123",
	}
	for input, want := range cases {
		if got := ShortcodeFromRef(input); got != want {
			t.Errorf("ShortcodeFromRef(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestAccountFromRef(t *testing.T) {
	cases := map[string]string{
		"@BrandName":                           "brandname",
		"brandname":                            "brandname",
		"https://www.instagram.com/BrandName/": "brandname",
	}
	for input, want := range cases {
		if got := AccountFromRef(input); got != want {
			t.Errorf("AccountFromRef(%q) = %q, want %q", input, got, want)
		}
	}
}

const likersBody = `{"graphql":{"shortcode_media":{
	"owner":{"username":"brand"},
	"edge_liked_by":{"edges":[
		{"node":{"username":"Alice"}},
		{"node":{"username":"bob"}}
	]},
	"edge_media_to_parent_comment":{"edges":[
		{"node":{"owner":{"username":"carol"}}}
	]}
}}}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseUrl: server.URL, SessionId: "session"}, testLogger())
}

func TestHasPerformedActionLike(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("sessionid"); err != nil || cookie.Value != "session" {
			t.Errorf("session cookie not sent")
		}
		_, _ = w.Write([]byte(likersBody))
	})

	// match is case-insensitive against the provider's casing
	ok, err := client.HasPerformedAction(context.Background(), entity.ActionLike, "https://www.instagram.com/p/Cxyz/", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected like to be confirmed")
	}

	ok, err = client.HasPerformedAction(context.Background(), entity.ActionLike, "Cxyz", "dave")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("expected definitive false for a non-liker")
	}
}

func TestHasPerformedActionComment(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(likersBody))
	})

	ok, err := client.HasPerformedAction(context.Background(), entity.ActionComment, "Cxyz", "@Carol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected comment to be confirmed")
	}
}

func TestHasPerformedActionFollow(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/brand/followers/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"users":[{"username":"alice"},{"username":"bob"}]}`))
	})

	ok, err := client.HasPerformedAction(context.Background(), entity.ActionFollow, "https://www.instagram.com/brand/", "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected follow to be confirmed")
	}
}

func TestHasPerformedActionOutage(t *testing.T) {
	cases := map[string]int{
		"rate limited": http.StatusTooManyRequests,
		"unauthorized": http.StatusUnauthorized,
		"server error": http.StatusInternalServerError,
	}
	for name, status := range cases {
		t.Run(name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			})
			_, err := client.HasPerformedAction(context.Background(), entity.ActionLike, "Cxyz", "alice")
			if !errors.Is(err, entity.ErrVerificationUnavailable) {
				t.Errorf("expected ErrVerificationUnavailable, got %v", err)
			}
		})
	}
}

func TestHasPerformedActionBadPayload(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>login required</html>"))
	})
	_, err := client.HasPerformedAction(context.Background(), entity.ActionLike, "Cxyz", "alice")
	if !errors.Is(err, entity.ErrVerificationUnavailable) {
		t.Errorf("expected ErrVerificationUnavailable for non-JSON body, got %v", err)
	}
}

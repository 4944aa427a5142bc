// Package instagram implements the social verification adapter against
// Instagram's web JSON endpoints. All provider fragility (expired sessions,
// rate limits, data-shape changes) is confined here: every failure surfaces
// as entity.ErrVerificationUnavailable so an outage is never mistaken for
// "the user did not perform the action".
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/toni86moon/telegram-bot/entity"
	"github.com/toni86moon/telegram-bot/lib/sl"
)

type Config struct {
	BaseUrl   string
	SessionId string
	UserAgent string
}

type Client struct {
	hc        *http.Client
	baseURL   string
	sessionId string
	userAgent string
	log       *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	baseURL := cfg.BaseUrl
	if baseURL == "" {
		baseURL = "https://www.instagram.com"
	}
	return &Client{
		hc:        &http.Client{Timeout: 20 * time.Second},
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		sessionId: cfg.SessionId,
		userAgent: cfg.UserAgent,
		log:       logger.With(sl.Module("instagram")),
	}
}

// HasPerformedAction reports whether candidateHandle performed the action on
// the target. A definitive false is returned only when the provider answered;
// any transport or data problem fails with ErrVerificationUnavailable.
func (c *Client) HasPerformedAction(ctx context.Context, action entity.ActionType, targetRef, candidateHandle string) (bool, error) {
	handle := entity.NormalizeHandle(candidateHandle)
	if handle == "" {
		return false, fmt.Errorf("%w: empty handle", entity.ErrVerificationUnavailable)
	}

	var identities []string
	var err error
	switch action {
	case entity.ActionLike:
		identities, err = c.PostLikers(ctx, ShortcodeFromRef(targetRef))
	case entity.ActionComment:
		identities, err = c.PostCommenters(ctx, ShortcodeFromRef(targetRef))
	case entity.ActionFollow:
		identities, err = c.AccountFollowers(ctx, AccountFromRef(targetRef))
	default:
		return false, fmt.Errorf("%w: action type %q", entity.ErrInvalidArgument, action)
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", entity.ErrVerificationUnavailable, err)
	}

	for _, identity := range identities {
		if strings.EqualFold(identity, handle) {
			return true, nil
		}
	}
	return false, nil
}

// PostLikers returns the usernames that liked the post.
func (c *Client) PostLikers(ctx context.Context, shortcode string) ([]string, error) {
	info, err := c.postInfo(ctx, shortcode)
	if err != nil {
		return nil, err
	}
	var users []string
	for _, edge := range info.Graphql.ShortcodeMedia.EdgeLikedBy.Edges {
		users = append(users, edge.Node.Username)
	}
	return users, nil
}

// PostCommenters returns the usernames that authored a comment on the post.
func (c *Client) PostCommenters(ctx context.Context, shortcode string) ([]string, error) {
	info, err := c.postInfo(ctx, shortcode)
	if err != nil {
		return nil, err
	}
	var users []string
	for _, edge := range info.Graphql.ShortcodeMedia.EdgeMediaToParentComment.Edges {
		users = append(users, edge.Node.Owner.Username)
	}
	return users, nil
}

// AccountFollowers returns the usernames following the account.
func (c *Client) AccountFollowers(ctx context.Context, account string) ([]string, error) {
	if account == "" {
		return nil, fmt.Errorf("empty account reference")
	}
	body, err := c.request(ctx, fmt.Sprintf("/%s/followers/", account))
	if err != nil {
		return nil, err
	}
	var list followerList
	if err = json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode followers: %w", err)
	}
	var users []string
	for _, u := range list.Users {
		users = append(users, u.Username)
	}
	return users, nil
}

func (c *Client) postInfo(ctx context.Context, shortcode string) (*postInfo, error) {
	if shortcode == "" {
		return nil, fmt.Errorf("empty post reference")
	}
	body, err := c.request(ctx, fmt.Sprintf("/p/%s/", shortcode))
	if err != nil {
		return nil, err
	}
	var info postInfo
	if err = json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode post info: %w", err)
	}
	return &info, nil
}

// request sends an authenticated GET and returns the raw JSON body.
func (c *Client) request(ctx context.Context, path string) ([]byte, error) {
	log := c.log.With(slog.String("path", path))

	status := "ERROR"
	t1 := time.Now()
	defer func() {
		log.Debug("instagram request completed",
			slog.String("duration", fmt.Sprintf("%.3fms", float64(time.Since(t1))/float64(time.Millisecond))),
			slog.String("status", status))
	}()

	q := url.Values{}
	q.Set("__a", "1")
	q.Set("__d", "dis")
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.sessionId != "" {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: c.sessionId})
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	status = resp.Status
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		log.With(sl.Secret("session_id", c.sessionId)).Warn("instagram session rejected")
		return nil, fmt.Errorf("session rejected: %s", resp.Status)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("instagram %s", resp.Status)
	}

	return body, nil
}

// ShortcodeFromRef extracts the post shortcode from a post URL, e.g.
// "https://www.instagram.com/p/Cxyz123/" -> "Cxyz123". A bare shortcode
// passes through unchanged.
func ShortcodeFromRef(ref string) string {
	if !strings.Contains(ref, "/") {
		return strings.TrimSpace(ref)
	}
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// AccountFromRef extracts the account name from a profile URL or @handle.
func AccountFromRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, "/") {
		u, err := url.Parse(ref)
		if err != nil {
			return ""
		}
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) == 0 {
			return ""
		}
		ref = segments[0]
	}
	return entity.NormalizeHandle(ref)
}

type postInfo struct {
	Graphql struct {
		ShortcodeMedia struct {
			Owner struct {
				Username string `json:"username"`
			} `json:"owner"`
			EdgeLikedBy struct {
				Edges []struct {
					Node struct {
						Username string `json:"username"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"edge_liked_by"`
			EdgeMediaToParentComment struct {
				Edges []struct {
					Node struct {
						Owner struct {
							Username string `json:"username"`
						} `json:"owner"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"edge_media_to_parent_comment"`
		} `json:"shortcode_media"`
	} `json:"graphql"`
}

type followerList struct {
	Users []struct {
		Username string `json:"username"`
	} `json:"users"`
}

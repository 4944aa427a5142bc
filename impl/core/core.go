// Package core is the mission lifecycle controller. It owns the verify
// protocol: eligibility -> verification -> atomic completion+points ->
// best-effort reward issuance. All collaborators are injected behind the
// interfaces below; the controller holds no global state.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/toni86moon/telegram-bot/entity"
	"github.com/toni86moon/telegram-bot/lib/sl"
)

// MissionStore is the authoritative bookkeeping of users, missions and
// completions. Implemented by internal/database.MySql.
type MissionStore interface {
	RegisterUser(telegramId int64, username string) error
	GetUser(telegramId int64) (*entity.User, error)
	SetInstagramHandle(telegramId int64, handle string) error
	GetPoints(telegramId int64) (int64, error)
	EnsureReferralToken(telegramId int64, candidate string) (string, error)
	CreateMission(m *entity.Mission) (*entity.Mission, error)
	GetMission(id int64) (*entity.Mission, error)
	SetMissionActive(id int64, active bool) error
	ListMissions() ([]*entity.Mission, error)
	ListEligibleMissions(userId int64, filter entity.ActionType) ([]*entity.Mission, error)
	RecordCompletion(userId, missionId int64, description string, points int64) (*entity.Completion, error)
	SetRewardCode(userId, missionId int64, code string) error
	CompletionCount(missionId int64) (int64, error)
}

// SocialVerifier renders the like/comment/follow judgement against the
// external profile-data provider. Implemented by internal/instagram.Client.
type SocialVerifier interface {
	HasPerformedAction(ctx context.Context, action entity.ActionType, targetRef, candidateHandle string) (bool, error)
}

// RewardIssuer produces one-time discount codes. Implemented by
// internal/woocommerce.Client and internal/stripecoupon.StripeClient.
type RewardIssuer interface {
	IssueDiscountCode(ctx context.Context, userId int64, percent int64, expiry time.Time) (string, error)
}

// ActivityLog is the optional audit sink. Implemented by
// internal/database.MongoDB; nil disables logging.
type ActivityLog interface {
	SaveActivity(record *entity.Activity) error
	UserActivity(telegramId int64, limit int64) ([]*entity.Activity, error)
}

type Config struct {
	RewardPoints    int64
	DiscountPercent int64
	CodeExpiryDays  int
	VerifyTimeout   time.Duration
	IssueTimeout    time.Duration
}

type Core struct {
	store    MissionStore
	verifier SocialVerifier
	issuer   RewardIssuer
	activity ActivityLog
	conf     Config
	log      *slog.Logger
}

func New(store MissionStore, verifier SocialVerifier, issuer RewardIssuer, conf Config, log *slog.Logger) *Core {
	if store == nil {
		panic("mission store is nil")
	}
	if conf.RewardPoints == 0 {
		conf.RewardPoints = 10
	}
	if conf.DiscountPercent == 0 {
		conf.DiscountPercent = 10
	}
	if conf.VerifyTimeout == 0 {
		conf.VerifyTimeout = 30 * time.Second
	}
	if conf.IssueTimeout == 0 {
		conf.IssueTimeout = 15 * time.Second
	}
	return &Core{
		store:    store,
		verifier: verifier,
		issuer:   issuer,
		conf:     conf,
		log:      log.With(sl.Module("core")),
	}
}

func (c *Core) SetActivityLog(activity ActivityLog) {
	c.activity = activity
}

func (c *Core) RegisterUser(telegramId int64, username string) error {
	return c.store.RegisterUser(telegramId, username)
}

// LinkProfile stores the normalized Instagram handle and returns it.
func (c *Core) LinkProfile(telegramId int64, handle string) (string, error) {
	normalized := entity.NormalizeHandle(handle)
	if normalized == "" {
		return "", fmt.Errorf("%w: empty handle", entity.ErrInvalidArgument)
	}
	if err := c.store.SetInstagramHandle(telegramId, normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

func (c *Core) Points(telegramId int64) (int64, error) {
	return c.store.GetPoints(telegramId)
}

// ReferralToken returns the user's stable referral token, generating it on
// first request.
func (c *Core) ReferralToken(telegramId int64) (string, error) {
	return c.store.EnsureReferralToken(telegramId, uuid.New().String())
}

func (c *Core) CreateMission(m *entity.Mission) (*entity.Mission, error) {
	if m == nil || !m.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown action type", entity.ErrInvalidArgument)
	}
	if m.TargetRef == "" {
		return nil, fmt.Errorf("%w: empty target reference", entity.ErrInvalidArgument)
	}
	return c.store.CreateMission(m)
}

func (c *Core) GetMission(id int64) (*entity.Mission, error) {
	return c.store.GetMission(id)
}

func (c *Core) SetMissionActive(id int64, active bool) error {
	return c.store.SetMissionActive(id, active)
}

func (c *Core) ListMissions() ([]*entity.Mission, error) {
	return c.store.ListMissions()
}

// CompletionCount reports how many users completed the mission.
func (c *Core) CompletionCount(missionId int64) (int64, error) {
	return c.store.CompletionCount(missionId)
}

// UserActivity returns the latest audit records for the user. Without an
// audit sink configured the history is simply empty.
func (c *Core) UserActivity(telegramId int64, limit int64) ([]*entity.Activity, error) {
	if c.activity == nil {
		return nil, nil
	}
	return c.activity.UserActivity(telegramId, limit)
}

// RequestMissions lists the missions currently offered to the user: active
// and not yet completed, optionally filtered by action type.
func (c *Core) RequestMissions(_ context.Context, telegramId int64, filter entity.ActionType) ([]*entity.Mission, error) {
	if filter != "" && !filter.IsValid() {
		return nil, fmt.Errorf("%w: action type %q", entity.ErrInvalidArgument, filter)
	}
	return c.store.ListEligibleMissions(telegramId, filter)
}

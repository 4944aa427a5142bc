package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/toni86moon/telegram-bot/entity"
	"github.com/toni86moon/telegram-bot/lib/sl"
)

// VerifyMissions runs the verification protocol for every mission currently
// eligible for the user and returns one outcome per mission. Fails with
// ErrProfileNotLinked before touching the provider when no handle is linked.
func (c *Core) VerifyMissions(ctx context.Context, telegramId int64) ([]*entity.VerifyOutcome, error) {
	user, err := c.store.GetUser(telegramId)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, entity.ErrProfileNotLinked
		}
		return nil, err
	}
	if !user.HasHandle() {
		return nil, entity.ErrProfileNotLinked
	}

	missions, err := c.store.ListEligibleMissions(telegramId, "")
	if err != nil {
		return nil, err
	}

	outcomes := make([]*entity.VerifyOutcome, 0, len(missions))
	for _, mission := range missions {
		outcomes = append(outcomes, c.verifyOne(ctx, user, mission))
	}
	return outcomes, nil
}

// verifyOne decides one (user, mission) pair.
//
// The order of operations is the correctness core of this service:
//  1. provider judgement, outage kept distinct from a definitive false;
//  2. atomic completion+points, losers of the insert race stop here;
//  3. reward issuance, best-effort and never unwinding step 2.
func (c *Core) verifyOne(ctx context.Context, user *entity.User, mission *entity.Mission) *entity.VerifyOutcome {
	log := c.log.With(
		sl.User(user.TelegramId),
		sl.Mission(mission.Id),
		slog.String("type", string(mission.Type)),
	)

	vctx, cancel := context.WithTimeout(ctx, c.conf.VerifyTimeout)
	defer cancel()
	performed, err := c.verifier.HasPerformedAction(vctx, mission.Type, mission.TargetRef, user.InstagramHandle)
	if err != nil {
		log.Warn("verification unavailable", sl.Err(err))
		return &entity.VerifyOutcome{Mission: mission, Status: entity.VerifyUnavailable}
	}
	if !performed {
		log.Debug("action not performed")
		return &entity.VerifyOutcome{Mission: mission, Status: entity.VerifyNotCompleted}
	}

	description := fmt.Sprintf("%s on %s verified for @%s", mission.Type, mission.TargetRef, user.InstagramHandle)
	completion, err := c.store.RecordCompletion(user.TelegramId, mission.Id, description, c.conf.RewardPoints)
	if err != nil {
		if errors.Is(err, entity.ErrAlreadyCompleted) {
			// lost a race with a concurrent verify; the winner issues the code
			log.Debug("completion already recorded")
			return &entity.VerifyOutcome{Mission: mission, Status: entity.VerifyCompleted}
		}
		log.Error("recording completion", sl.Err(err))
		return &entity.VerifyOutcome{Mission: mission, Status: entity.VerifyError}
	}
	log.Info("mission completed", slog.Int64("points", c.conf.RewardPoints))
	c.logActivity(user.TelegramId, mission.Id, entity.EventMissionCompleted, description)

	code, err := c.issueReward(user.TelegramId, completion)
	if err != nil {
		log.Warn("reward issuance failed", sl.Err(err))
		c.logActivity(user.TelegramId, mission.Id, entity.EventCodeFailed, err.Error())
		return &entity.VerifyOutcome{Mission: mission, Status: entity.VerifyCodeFailed}
	}
	c.logActivity(user.TelegramId, mission.Id, entity.EventCodeIssued, code)

	return &entity.VerifyOutcome{Mission: mission, Status: entity.VerifyCompleted, Code: code}
}

// issueReward requests a discount code for a freshly recorded completion.
// Runs on a detached context: once the completion is committed, issuance is
// attempted at least once even if the inbound command was cancelled.
func (c *Core) issueReward(telegramId int64, completion *entity.Completion) (string, error) {
	if c.issuer == nil {
		return "", fmt.Errorf("%w: no issuer configured", entity.ErrIssuanceFailed)
	}

	ictx, cancel := context.WithTimeout(context.Background(), c.conf.IssueTimeout)
	defer cancel()

	var expiry time.Time
	if c.conf.CodeExpiryDays > 0 {
		expiry = completion.CompletedAt.AddDate(0, 0, c.conf.CodeExpiryDays)
	}

	code, err := c.issuer.IssueDiscountCode(ictx, telegramId, c.conf.DiscountPercent, expiry)
	if err != nil {
		return "", err
	}

	if err = c.store.SetRewardCode(completion.UserId, completion.MissionId, code); err != nil {
		// the code is already issued and will be shown to the user; audit
		// record is lost, nothing else to do
		c.log.Warn("saving reward code",
			sl.User(completion.UserId),
			sl.Mission(completion.MissionId),
			sl.Err(err),
		)
	}
	return code, nil
}

func (c *Core) logActivity(telegramId, missionId int64, event, description string) {
	if c.activity == nil {
		return
	}
	record := &entity.Activity{
		TelegramId:  telegramId,
		MissionId:   missionId,
		Event:       event,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.activity.SaveActivity(record); err != nil {
		c.log.Warn("saving activity record", sl.Err(err))
	}
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"github.com/toni86moon/telegram-bot/entity"
)

func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	username := ctx.EffectiveUser.Username

	err := t.core.RegisterUser(chatId, username)
	if err != nil {
		t.reportError(chatId, "/start", err)
		return nil
	}

	t.plainResponse(chatId, "Welcome to the missions bot\\!\n"+
		"Link your Instagram with `/insta <username>`, then grab a mission with `/mission`\\.")
	if t.requireAdmin(chatId) {
		t.setAdminCommands(chatId)
	}
	return nil
}

func (t *TgBot) insta(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.plainResponse(chatId, "Usage: `/insta <your_instagram_username>`")
		return nil
	}

	handle, err := t.core.LinkProfile(chatId, args[1])
	if err != nil {
		if errors.Is(err, entity.ErrInvalidArgument) {
			t.plainResponse(chatId, "Usage: `/insta <your_instagram_username>`")
			return nil
		}
		t.reportError(chatId, "/insta", err)
		return nil
	}
	t.plainResponse(chatId, "Instagram username linked: `"+Sanitize(handle)+"`")
	return nil
}

// mission offers the user their eligible missions, optionally filtered by
// type. Gated behind channel membership; a gate lookup failure is reported
// as retryable, never as "no missions".
func (t *TgBot) mission(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	member, err := t.isChannelMember(chatId)
	if err != nil {
		t.log.Warn("channel membership check failed", "user_id", chatId, "error", err)
		t.plainResponse(chatId, "Cannot verify your channel membership right now\\. Please try again later\\.")
		return nil
	}
	if !member {
		t.plainResponse(chatId, "To receive missions you need to join our channel first\\.")
		return nil
	}

	var filter entity.ActionType
	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) > 1 {
		filter, err = entity.ParseActionType(args[1])
		if err != nil {
			t.plainResponse(chatId, "Unknown mission type\\. Use: `/mission like`, `/mission comment` or `/mission follow`\\.")
			return nil
		}
	}

	missions, err := t.core.RequestMissions(context.Background(), chatId, filter)
	if err != nil {
		t.reportError(chatId, "/mission", err)
		return nil
	}
	if len(missions) == 0 {
		t.plainResponse(chatId, "No missions available at the moment\\.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("*Available missions:*\n")
	for _, m := range missions {
		sb.WriteString(fmt.Sprintf("\nMission %d: *%s* %s\n", m.Id, Sanitize(strings.ToUpper(string(m.Type))), Sanitize(m.TargetRef)))
	}
	sb.WriteString("\nWhen done, use /verify")

	for _, part := range splitMessage(sb.String(), maxTelegramMessageLen) {
		t.plainResponse(chatId, part)
	}
	return nil
}

// verify runs the verification protocol over all eligible missions and
// reports one line per mission.
func (t *TgBot) verify(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	outcomes, err := t.core.VerifyMissions(context.Background(), chatId)
	if err != nil {
		if errors.Is(err, entity.ErrProfileNotLinked) {
			t.plainResponse(chatId, "Link your Instagram first with `/insta <username>`\\.")
			return nil
		}
		t.reportError(chatId, "/verify", err)
		return nil
	}
	if len(outcomes) == 0 {
		t.plainResponse(chatId, "No active missions to verify\\. Use /mission to get one\\.")
		return nil
	}

	var sb strings.Builder
	for _, outcome := range outcomes {
		sb.WriteString(fmt.Sprintf("Mission %d \\(%s\\): %s\n",
			outcome.Mission.Id,
			Sanitize(string(outcome.Mission.Type)),
			outcomeText(outcome),
		))
	}
	for _, part := range splitMessage(sb.String(), maxTelegramMessageLen) {
		t.plainResponse(chatId, part)
	}
	return nil
}

func outcomeText(outcome *entity.VerifyOutcome) string {
	switch outcome.Status {
	case entity.VerifyCompleted:
		if outcome.Code != "" {
			return "completed\\! Your discount code: `" + Sanitize(outcome.Code) + "`"
		}
		return "completed\\!"
	case entity.VerifyNotCompleted:
		return "not completed yet\\. Make sure you followed the instructions\\."
	case entity.VerifyUnavailable:
		return "could not be checked right now\\. Try again later\\."
	case entity.VerifyCodeFailed:
		return "completed and points awarded, but generating the discount code failed\\. Contact support to get your code\\."
	default:
		return "something went wrong\\. Try again later\\."
	}
}

func (t *TgBot) points(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	points, err := t.core.Points(chatId)
	if err != nil {
		t.reportError(chatId, "/points", err)
		return nil
	}
	t.plainResponse(chatId, fmt.Sprintf("You have %d points\\.", points))
	return nil
}

func (t *TgBot) referral(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	token, err := t.core.ReferralToken(chatId)
	if err != nil {
		t.reportError(chatId, "/referral", err)
		return nil
	}

	deepLink := fmt.Sprintf("https://t.me/%s?start=%s", t.api.Username, token)
	t.plainResponse(chatId, "Your referral link: "+Sanitize(deepLink))
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	var sb strings.Builder
	sb.WriteString("*Available Commands*\n\n")
	sb.WriteString("`/start` \\- Register\n")
	sb.WriteString("`/insta <username>` \\- Link your Instagram account\n")
	sb.WriteString("`/mission [like|comment|follow]` \\- Get missions\n")
	sb.WriteString("`/verify` \\- Verify mission completion\n")
	sb.WriteString("`/points` \\- Show your points\n")
	sb.WriteString("`/referral` \\- Get your referral link\n")
	sb.WriteString("`/help` \\- Show this help\n")

	if t.requireAdmin(chatId) {
		sb.WriteString("\n*Admin Commands:*\n")
		sb.WriteString("`/newmission <type> <url>` \\- Create a mission\n")
		sb.WriteString("`/missions` \\- List all missions\n")
		sb.WriteString("`/enable <id>` \\- Activate a mission\n")
		sb.WriteString("`/disable <id>` \\- Deactivate a mission\n")
		sb.WriteString("`/notify <id>` \\- Announce a mission in the channel\n")
	}

	t.plainResponse(chatId, sb.String())
	return nil
}

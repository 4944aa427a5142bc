package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"github.com/toni86moon/telegram-bot/entity"
)

// newMission creates an active mission from "/newmission <type> <url>".
func (t *TgBot) newMission(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.requireAdmin(chatId) {
		t.plainResponse(chatId, "Admin access required\\.")
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 3 {
		t.plainResponse(chatId, "Usage: `/newmission <like|comment|follow> <url>`")
		return nil
	}

	actionType, err := entity.ParseActionType(args[1])
	if err != nil {
		t.plainResponse(chatId, "Unknown mission type: `"+Sanitize(args[1])+"`\nAvailable: like, comment, follow")
		return nil
	}

	mission, err := t.core.CreateMission(&entity.Mission{
		Type:      actionType,
		TargetRef: args[2],
	})
	if err != nil {
		if errors.Is(err, entity.ErrInvalidArgument) {
			t.plainResponse(chatId, "Invalid mission definition: "+Sanitize(err.Error()))
			return nil
		}
		t.reportError(chatId, "/newmission", err)
		return nil
	}

	t.plainResponse(chatId, fmt.Sprintf("Mission %d created: *%s* %s\nAnnounce it with `/notify %d`",
		mission.Id, Sanitize(strings.ToUpper(string(mission.Type))), Sanitize(mission.TargetRef), mission.Id))
	return nil
}

// missionsCmd lists every mission with its state, disabled ones included.
func (t *TgBot) missionsCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.requireAdmin(chatId) {
		t.plainResponse(chatId, "Admin access required\\.")
		return nil
	}

	missions, err := t.core.ListMissions()
	if err != nil {
		t.reportError(chatId, "/missions", err)
		return nil
	}
	if len(missions) == 0 {
		t.plainResponse(chatId, "No missions defined yet\\.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Missions* \\(%d total\\)\n", len(missions)))
	for _, m := range missions {
		state := "active"
		if !m.Active {
			state = "disabled"
		}
		sb.WriteString(fmt.Sprintf("\nID %d \\| %s \\| %s \\| %s\n",
			m.Id,
			Sanitize(string(m.Type)),
			Sanitize(m.TargetRef),
			state,
		))
	}

	for _, part := range splitMessage(sb.String(), maxTelegramMessageLen) {
		t.plainResponse(chatId, part)
	}
	return nil
}

func (t *TgBot) enable(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return t.setActive(ctx, true, "/enable")
}

func (t *TgBot) disable(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return t.setActive(ctx, false, "/disable")
}

// setActive toggles the soft-disable flag. Missions are never deleted, so a
// deactivated mission keeps its completion records.
func (t *TgBot) setActive(ctx *ext.Context, active bool, command string) error {
	chatId := ctx.EffectiveUser.Id
	if !t.requireAdmin(chatId) {
		t.plainResponse(chatId, "Admin access required\\.")
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.plainResponse(chatId, "Usage: `"+Sanitize(command)+" <mission id>`")
		return nil
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		t.plainResponse(chatId, "Invalid mission id: `"+Sanitize(args[1])+"`")
		return nil
	}

	err = t.core.SetMissionActive(id, active)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			t.plainResponse(chatId, fmt.Sprintf("Mission %d not found\\.", id))
			return nil
		}
		t.reportError(chatId, command, err)
		return nil
	}

	state := "activated"
	if !active {
		state = "deactivated"
	}
	t.plainResponse(chatId, fmt.Sprintf("Mission %d %s\\.", id, state))
	return nil
}

// notify announces a mission in the configured channel.
func (t *TgBot) notify(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.requireAdmin(chatId) {
		t.plainResponse(chatId, "Admin access required\\.")
		return nil
	}
	if t.config.ChannelId == 0 {
		t.plainResponse(chatId, "No channel configured\\.")
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.plainResponse(chatId, "Usage: `/notify <mission id>`")
		return nil
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		t.plainResponse(chatId, "Invalid mission id: `"+Sanitize(args[1])+"`")
		return nil
	}

	mission, err := t.core.GetMission(id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			t.plainResponse(chatId, fmt.Sprintf("Mission %d not found\\.", id))
			return nil
		}
		t.reportError(chatId, "/notify", err)
		return nil
	}
	if !mission.Active {
		t.plainResponse(chatId, fmt.Sprintf("Mission %d is disabled; enable it before announcing\\.", id))
		return nil
	}

	announcement := fmt.Sprintf("New mission\\! *%s* %s\nTalk to the bot to take part\\.",
		Sanitize(strings.ToUpper(string(mission.Type))), Sanitize(mission.TargetRef))
	t.plainResponse(t.config.ChannelId, announcement)
	t.plainResponse(chatId, "Announcement sent\\.")
	return nil
}

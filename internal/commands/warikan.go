package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/warikanbot/internal/balance"
	"github.com/susu3304/warikanbot/internal/nomikai"
	"github.com/susu3304/warikanbot/internal/settle"
)

func HandleWarikan(s *discordgo.Session, i *discordgo.InteractionCreate, svc *nomikai.Service, webBaseURL string) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondText(s, i, "サブコマンドが指定されていません")
		return
	}

	ctx := context.Background()
	sub := data.Options[0]
	channelID := i.ChannelID
	userID := interactionUserID(i)

	switch sub.Name {
	case "start":
		precision := -1
		if p := getIntOption(sub.Options, "precision"); p != nil {
			precision = int(*p)
		}
		ev, err := svc.Start(ctx, ParseGuildID(i.GuildID), channelID, userID, precision)
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, fmt.Sprintf("このチャンネルで割り勘を開始しました (小数点以下 %d 桁で精算)", ev.RoundingPrecision))
	case "stop":
		if err := svc.Stop(ctx, channelID); err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, "割り勘を終了しました")
	case "join":
		joined, err := svc.Join(ctx, channelID, userID)
		if err != nil {
			respondError(s, i, err)
			return
		}
		if len(joined) == 0 {
			respondText(s, i, "すでに参加登録されています")
			return
		}
		respondText(s, i, "参加者として登録しました")
	case "member":
		uid := getUserID(sub.Options, "user")
		if uid == "" {
			respondText(s, i, "ユーザーが指定されていません")
			return
		}
		if _, err := svc.Join(ctx, channelID, uid); err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, fmt.Sprintf("<@%s> を参加者に追加しました", uid))
	case "weight":
		usersOpt := getStringOption(sub.Options, "users")
		val := getNumberOption(sub.Options, "value")
		if usersOpt == nil || val == nil {
			respondText(s, i, "users と value の指定が必要です")
			return
		}
		ids := parseMentionIDs(*usersOpt)
		if len(ids) == 0 {
			respondText(s, i, "ユーザーのメンション/IDを認識できませんでした")
			return
		}
		joined, err := svc.SetWeight(ctx, channelID, ids, *val)
		if err != nil {
			respondError(s, i, err)
			return
		}
		msg := fmt.Sprintf("%s の比率を %.2f に設定しました", mentions(ids), *val)
		if len(joined) > 0 {
			msg += "\n参加登録: " + mentions(joined)
		}
		respondText(s, i, msg)
	case "pay":
		amount := getNumberOption(sub.Options, "amount")
		if amount == nil {
			respondText(s, i, "金額の指定が必要です")
			return
		}
		beneficiary := getUserID(sub.Options, "for")
		memo := ""
		if m := getStringOption(sub.Options, "memo"); m != nil {
			memo = *m
		}
		joined, err := svc.Pay(ctx, channelID, userID, beneficiary, *amount, memo)
		if err != nil {
			respondError(s, i, err)
			return
		}
		msg := fmt.Sprintf("%g 円を記録しました (全員で割り勘)", *amount)
		if beneficiary != "" {
			msg = fmt.Sprintf("<@%s> の分として %g 円を記録しました", beneficiary, *amount)
		}
		if len(joined) > 0 {
			msg += "\n参加登録: " + mentions(joined)
		}
		respondText(s, i, msg)
	case "status":
		txt, err := svc.Status(ctx, channelID)
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, txt)
	case "settle":
		// The search can outlast the 3 second interaction deadline.
		s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		})
		content := ""
		res, err := svc.Settle(ctx, channelID)
		if err != nil {
			content = errorMessage(err)
		} else {
			content = res.Summary
		}
		content = truncateMessage(content)
		s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
			Content: &content,
		})
	case "done":
		uid := getUserID(sub.Options, "user")
		if uid == "" {
			respondText(s, i, "相手の指定が必要です")
			return
		}
		msg, err := svc.CompleteTask(ctx, channelID, userID, uid)
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, msg)
	case "remind":
		minutes := getIntOption(sub.Options, "minutes")
		if minutes == nil {
			respondText(s, i, "通知間隔の指定が必要です")
			return
		}
		if err := svc.SetReminder(ctx, channelID, int(*minutes), time.Now()); err != nil {
			respondError(s, i, err)
			return
		}
		if *minutes <= 0 {
			respondText(s, i, "リマインドを停止しました")
			return
		}
		respondText(s, i, fmt.Sprintf("%d 分ごとに未完了の精算をリマインドします", *minutes))
	case "web":
		if i.GuildID == "" {
			respondText(s, i, "このコマンドはギルド内でのみ使用できます。")
			return
		}
		respondText(s, i, fmt.Sprintf("WebUI URL: %s/guilds/%s/channels/%s", webBaseURL, i.GuildID, channelID))
	default:
		respondText(s, i, "未知のサブコマンドです")
	}
}

// errorMessage turns service errors into a reply. Unexpected errors are
// logged and hidden behind a generic message.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, nomikai.ErrNoActiveEvent),
		errors.Is(err, nomikai.ErrEventExists),
		errors.Is(err, nomikai.ErrNotEnoughParticipants),
		errors.Is(err, nomikai.ErrTooManyParticipants),
		errors.Is(err, nomikai.ErrInvalidAmount),
		errors.Is(err, nomikai.ErrInvalidWeight),
		errors.Is(err, nomikai.ErrTaskNotFound):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "計算に時間がかかりすぎたため中断しました。参加者を減らしてください"
	case errors.Is(err, settle.ErrUnreconciled):
		return "収支が一致しないため精算できませんでした"
	case errors.Is(err, balance.ErrInvalidLedger):
		return "記録に不整合があります: " + err.Error()
	default:
		log.Printf("warikan: %v", err)
		return "処理に失敗しました"
	}
}

func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	respondText(s, i, errorMessage(err))
}

func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: truncateMessage(content)},
	})
}

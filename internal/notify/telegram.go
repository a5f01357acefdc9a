// Package notify announces new briefing editions.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bryan-buckman/iantel/internal/model"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram posts a short summary of each published edition to one chat.
type Telegram struct {
	Bot     *tgbotapi.BotAPI
	ChatID  int64
	BaseURL string
}

// NewTelegram connects to the Bot API with token. chatIDStr is the numeric
// chat id; baseURL, when set, is linked from the announcement.
func NewTelegram(token, chatIDStr, baseURL string) (*Telegram, error) {
	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}

	return &Telegram{Bot: bot, ChatID: chatID, BaseURL: baseURL}, nil
}

// Announce sends the summary of doc. It satisfies briefing.Hook.
func (t *Telegram) Announce(ctx context.Context, doc *model.BriefingDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.ChatID, Summary(doc, t.BaseURL))
	msg.DisableWebPagePreview = true
	if _, err := t.Bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram announcement: %w", err)
	}
	return nil
}

// Summary renders the plain-text announcement of doc.
func Summary(doc *model.BriefingDocument, baseURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "IANTEL edition %d is ready (%s UTC)\n",
		doc.Meta.Edition, doc.Meta.GeneratedAt.UTC().Format("2006-01-02 15:04"))

	total := 0
	for _, topic := range model.Topics {
		items, ok := doc.Sections[topic]
		if !ok {
			continue
		}
		total += len(items)
		fmt.Fprintf(&b, "\n%s: %d", topic, len(items))
		if len(items) > 0 {
			fmt.Fprintf(&b, " · %s", items[0].Title)
		}
	}
	if total == 0 {
		b.WriteString("\nno items this time")
	}

	if len(doc.Snapshot.Items) == 0 {
		b.WriteString("\n\nsnapshot unavailable")
	} else {
		fmt.Fprintf(&b, "\n\nsnapshot: %d assets, updated %s", len(doc.Snapshot.Items), doc.Snapshot.UpdatedLocal)
	}

	if baseURL != "" {
		fmt.Fprintf(&b, "\n%s", strings.TrimRight(baseURL, "/")+"/")
	}
	return b.String()
}

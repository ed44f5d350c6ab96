// Package notification delivers trade events to the operator. Delivery is
// fire-and-forget: a failed send is logged and dropped, never retried into
// the trading loop.
package notification

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mkaraca/swingbot/core"
	"github.com/mkaraca/swingbot/exchange"
	"github.com/mkaraca/swingbot/logger"
	tb "gopkg.in/tucnak/telebot.v2"
)

// StatusSource exposes the read-only bot state the command handlers report on.
type StatusSource interface {
	Mode() core.Mode
	Position() core.Position
	Cash() float64
	ProfitSummary() string
}

type telegram struct {
	settings    *core.Settings
	source      StatusSource
	defaultMenu *tb.ReplyMarkup
	client      *tb.Bot
	log         logger.Logger
}

// NewTelegram creates the Telegram notifier. Only the user IDs listed in the
// settings pass the poller middleware; everyone else is dropped before any
// handler runs.
func NewTelegram(source StatusSource, settings *core.Settings, log logger.Logger) (core.NotifierWithStart, error) {
	menu := &tb.ReplyMarkup{ResizeReplyKeyboard: true}
	poller := &tb.LongPoller{Timeout: 10 * time.Second}

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Telegram.Token,
		Poller:    authMiddleware(poller, settings, log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	menu.Reply(
		menu.Row(menu.Text("/status"), menu.Text("/profit"), menu.Text("/help")),
	)

	err = client.SetCommands([]tb.Command{
		{Text: "/help", Description: "Display help instructions"},
		{Text: "/status", Description: "Current position and balance"},
		{Text: "/profit", Description: "Summary of closed trades"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	t := &telegram{
		settings:    settings,
		source:      source,
		defaultMenu: menu,
		client:      client,
		log:         log,
	}

	client.Handle("/help", t.HelpHandle)
	client.Handle("/status", t.StatusHandle)
	client.Handle("/profit", t.ProfitHandle)

	return t, nil
}

func authMiddleware(poller *tb.LongPoller, settings *core.Settings, log logger.Logger) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			log.Error("telegram update without message or sender")
			return false
		}

		if slices.Contains(settings.Telegram.Users, int(u.Message.Sender.ID)) {
			return true
		}

		log.Errorf("unauthorized telegram user %d", u.Message.Sender.ID)
		return false
	})
}

// Start begins long polling and greets the authorized users.
func (t *telegram) Start() {
	go t.client.Start()
	t.sendToAll(fmt.Sprintf("%s Bot initialized.", t.source.Mode().Tag()), t.defaultMenu)
}

// Notify sends a message to all authorized users.
func (t *telegram) Notify(text string) {
	t.sendToAll(text)
}

func (t *telegram) sendToAll(text string, options ...interface{}) {
	for _, user := range t.settings.Telegram.Users {
		if _, err := t.client.Send(&tb.User{ID: int64(user)}, text, options...); err != nil {
			t.log.WithError(err).Error("failed to send telegram notification")
		}
	}
}

func (t *telegram) sendMessage(to *tb.User, text string, options ...interface{}) {
	if _, err := t.client.Send(to, text, options...); err != nil {
		t.log.WithError(err).Error("failed to send telegram message")
	}
}

func (t *telegram) HelpHandle(m *tb.Message) {
	commands, err := t.client.GetCommands()
	if err != nil {
		t.log.WithError(err).Error("failed to get telegram commands")
		return
	}

	lines := make([]string, 0, len(commands))
	for _, command := range commands {
		lines = append(lines, fmt.Sprintf("/%s - %s", command.Text, command.Description))
	}
	t.sendMessage(m.Sender, strings.Join(lines, "\n"))
}

func (t *telegram) StatusHandle(m *tb.Message) {
	pos := t.source.Position()
	_, quote := exchange.SplitAssetQuote(t.settings.Pair)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *STATUS*\n", t.source.Mode().Tag())
	fmt.Fprintf(&sb, "Pair: `%s`\n", t.settings.Pair)
	fmt.Fprintf(&sb, "Cash: `%.4f %s`\n", t.source.Cash(), quote)
	if pos.IsLong() {
		fmt.Fprintf(&sb, "Position: `LONG %.6f @ %.4f` (since %s)",
			pos.Quantity, pos.EntryPrice, pos.OpenedAt.Format(time.DateTime))
	} else {
		sb.WriteString("Position: `FLAT`")
	}

	t.sendMessage(m.Sender, sb.String())
}

func (t *telegram) ProfitHandle(m *tb.Message) {
	summary := t.source.ProfitSummary()
	if summary == "" {
		t.sendMessage(m.Sender, "No trades registered.")
		return
	}
	t.sendMessage(m.Sender, fmt.Sprintf("%s *PROFIT*\n`%s`", t.source.Mode().Tag(), summary))
}

// OnOpen announces a newly opened position.
func (t *telegram) OnOpen(pair string, position core.Position) {
	t.Notify(fmt.Sprintf("%s 🟢 OPENED LONG - %s\n-----\nQuantity: `%.6f`\nEntry: `%.4f`",
		t.source.Mode().Tag(), pair, position.Quantity, position.EntryPrice))
}

// OnClose announces a closed round trip with its realized result.
func (t *telegram) OnClose(pair string, trade core.Trade) {
	emoji := "✅"
	if trade.ProfitValue < 0 {
		emoji = "🔴"
	}

	_, quote := exchange.SplitAssetQuote(pair)
	t.Notify(fmt.Sprintf(
		"%s %s CLOSED LONG - %s\n-----\nEntry: `%.4f`\nExit: `%.4f`\nQuantity: `%.6f`\nProfit: `%.4f %s` (%.2f%%)",
		t.source.Mode().Tag(), emoji, pair,
		trade.EntryPrice, trade.ExitPrice, trade.Quantity,
		trade.ProfitValue, quote, trade.ProfitPercent*100))
}

// OnError reports an operational error, with order context when available.
func (t *telegram) OnError(err error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s 🛑 ERROR\n", t.source.Mode().Tag())

	var orderError *exchange.OrderError
	if errors.As(err, &orderError) {
		sb.WriteString("-----\n")
		fmt.Fprintf(&sb, "Pair: %s\n", orderError.Pair)
		fmt.Fprintf(&sb, "Quantity: %.6f\n", orderError.Quantity)
		sb.WriteString("-----\n")
		sb.WriteString(orderError.Err.Error())
		t.Notify(sb.String())
		return
	}

	sb.WriteString("-----\n")
	sb.WriteString(err.Error())
	t.Notify(sb.String())
}

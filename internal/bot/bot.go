// Package bot — Telegram-интерфейс трекера: команды в чате владельца
// и отправка напоминаний. bot.go отвечает за polling и маршрутизацию.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/pullups/internal/bot/filters"
	"serotonyl.ru/pullups/internal/bot/middleware"
)

// Ограничения обработки апдейтов.
const (
	maxInflight       = 8
	pollTimeoutSec    = 60
	rateLimitRequests = 20
	rateLimitWindow   = time.Minute
)

// Sender — отправка сообщений. Реализуется *telego.Bot.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Bot — Telegram-бот одного владельца.
type Bot struct {
	api         *telego.Bot
	sender      Sender
	ownerChatID int64

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter
	parser      *CommandParser
	handler     *Handler

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// NewAPI создаёт клиент Telegram Bot API.
func NewAPI(token string) (*telego.Bot, error) {
	api, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram-бота: %w", err)
	}
	return api, nil
}

// New создаёт бота. api может быть nil, тогда бот только отправляет
// сообщения через sender (так его собирают тесты).
func New(api *telego.Bot, sender Sender, ownerChatID int64, handler *Handler) *Bot {
	if sender == nil {
		sender = api
	}
	return &Bot{
		api:         api,
		sender:      sender,
		ownerChatID: ownerChatID,
		chatFilter:  filters.NewChatFilter(ownerChatID),
		rateLimiter: middleware.NewRateLimiter(rateLimitRequests, rateLimitWindow),
		parser:      NewCommandParser(),
		handler:     handler,
		inflight:    make(chan struct{}, maxInflight),
	}
}

// Start получает апдейты long polling'ом, пока ctx не отменён.
func (b *Bot) Start(ctx context.Context) error {
	defer b.Close()

	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{Timeout: pollTimeoutSec})
	if err != nil {
		return fmt.Errorf("ошибка запуска long polling: %w", err)
	}

	log.WithFields(log.Fields{
		"max_inflight": maxInflight,
		"timeout_sec":  pollTimeoutSec,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.drain()
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				b.drain()
				return nil
			}

			b.inflight <- struct{}{}
			go func(upd telego.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// Close освобождает фоновые ресурсы бота.
func (b *Bot) Close() {
	b.rateLimiter.Close()
}

// drain ждёт завершения обработчиков, занимая все слоты.
func (b *Bot) drain() {
	for i := 0; i < cap(b.inflight); i++ {
		b.inflight <- struct{}{}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	message := update.Message
	if message == nil || message.Text == "" {
		return
	}

	middleware.LogMessage(message)

	if !b.chatFilter.CheckAccess(message) {
		return
	}
	if !b.rateLimiter.Allow(message.Chat.ID) {
		log.WithField("chat_id", message.Chat.ID).Debug("rate limited")
		return
	}

	reply := b.HandleText(ctx, message.Text)
	if reply == "" {
		return
	}
	b.sendMessage(ctx, message.Chat.ID, reply)
}

// HandleText разбирает текст сообщения и возвращает ответ.
// Пустая строка — сообщение не команда, отвечать не нужно.
func (b *Bot) HandleText(ctx context.Context, text string) string {
	cmd, args, isCommand := b.parser.ParseCommand(text)
	if !isCommand {
		return ""
	}
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")
	return b.routeCommand(ctx, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, cmd string, args []string) string {
	switch cmd {
	case "start", "help", "помощь":
		return helpText

	case "log", "подход", "тренировка":
		return b.handler.HandleLog(ctx, args)

	case "open", "сундук":
		return b.handler.HandleOpen(ctx, args)

	case "balance", "монеты":
		return b.handler.HandleBalance(ctx)

	case "history", "операции":
		return b.handler.HandleHistory(ctx)

	case "rank", "ранг":
		return b.handler.HandleRank(ctx)

	case "streak", "серия":
		return b.handler.HandleStreak(ctx)

	case "records", "рекорды":
		return b.handler.HandleRecords(ctx)

	case "odds", "шансы":
		return b.handler.HandleOdds(ctx, args)

	default:
		return "🤷 Неизвестная команда. /help — список команд"
	}
}

// Notify отправляет уведомление в чат владельца.
func (b *Bot) Notify(ctx context.Context, text string) error {
	if _, err := b.sender.SendMessage(ctx, tu.Message(tu.ID(b.ownerChatID), text)); err != nil {
		return fmt.Errorf("ошибка отправки уведомления: %w", err)
	}
	log.WithField("chat_id", b.ownerChatID).Debug("notification sent")
	return nil
}

// sendMessage — утилита для отправки ответа.
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := b.sender.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// CommandParser парсит команды с префиксами /, ! и .
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/", "!", "."},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс "@имябота" у команды отбрасывается.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return command, args, true
}

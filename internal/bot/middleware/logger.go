// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

const maxLoggedRunes = 50

// LogMessage логирует входящее сообщение: chat_id, автора и начало текста.
func LogMessage(message *telego.Message) {
	if message == nil {
		return
	}

	text := []rune(message.Text)
	logged := string(text)
	if len(text) > maxLoggedRunes {
		logged = string(text[:maxLoggedRunes]) + "..."
	}

	fields := log.Fields{
		"chat_id": message.Chat.ID,
		"text":    logged,
	}
	if message.From != nil {
		fields["user_id"] = message.From.ID
		fields["username"] = message.From.Username
	}
	log.WithFields(fields).Debug("Входящее сообщение")
}

// Package filters решает, каким сообщениям бот отвечает.
package filters

import (
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает только чат владельца.
type ChatFilter struct {
	ownerChatID int64
}

func NewChatFilter(ownerChatID int64) *ChatFilter {
	return &ChatFilter{ownerChatID: ownerChatID}
}

func (f *ChatFilter) CheckAccess(message *telego.Message) bool {
	if message == nil {
		log.WithField("component", "ChatFilter").Warn("nil message")
		return false
	}
	if f.ownerChatID == 0 {
		log.WithField("component", "ChatFilter").Error("ownerChatID is 0 (config bug)")
		return false
	}

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
	})

	if message.Chat.ID != f.ownerChatID {
		logger.Info("deny: not owner chat")
		return false
	}
	logger.Debug("allow: owner chat")
	return true
}

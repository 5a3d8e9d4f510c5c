// Package economy управляет монетами: баланс, журнал операций и
// расчёт награды за тренировку.
// models.go содержит структуры данных журнала.
package economy

import "time"

// Transaction — одна запись в журнале монет.
// Каждое изменение баланса (награда, покупка сундука, возврат) оставляет запись.
type Transaction struct {
	ID           string    `json:"id"`
	Amount       int64     `json:"amount"`       // положительное — начисление, отрицательное — списание
	Type         string    `json:"type"`         // session_reward, chest_purchase, ...
	Description  string    `json:"description"`  // текст для истории
	BalanceAfter int64     `json:"balanceAfter"` // баланс после операции
	CreatedAt    time.Time `json:"createdAt"`
}

// Типы операций в журнале
const (
	TxTypeSessionReward = "session_reward" // награда за тренировку
	TxTypeRewardRevoked = "reward_revoked" // награда отменена: тренировка не сохранилась
	TxTypeChestPurchase = "chest_purchase" // покупка сундука
	TxTypeChestRefund   = "chest_refund"   // возврат монет при сбое открытия
	TxTypeImportAdjust  = "import_adjust"  // баланс восстановлен из бэкапа
)

// DefaultHistoryLimit — сколько операций показывать по умолчанию.
const DefaultHistoryLimit = 20

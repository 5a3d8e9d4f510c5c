// Package backup — выгрузка, загрузка и сброс всех данных приложения.
package backup

import (
	"context"
	"time"

	"serotonyl.ru/pullups/internal/features/chests"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/features/progress"
)

// FormatVersion — версия формата файла выгрузки.
const FormatVersion = 1

// Snapshot — полное состояние приложения в формате файла выгрузки.
type Snapshot struct {
	Version      int                           `json:"version"`
	ExportDate   time.Time                     `json:"exportDate"`
	Sessions     []*progress.Session           `json:"sessions"`
	Coins        int64                         `json:"coins"`
	Modifiers    chests.ModifierState          `json:"modifiers"`
	ChestOpens   []*chests.OpenRecord          `json:"chestOpens"`
	Wallet       []*chests.WalletItem          `json:"wallet"`
	Milestones   []*progress.Milestone         `json:"milestones"`
	Achievements []*progress.AchievementUnlock `json:"achievements"`
	Transactions []*economy.Transaction        `json:"transactions"`
}

// Repository — хранилище, умеющее отдать и заменить всё состояние целиком.
type Repository interface {
	// Snapshot читает всё состояние (Version и ExportDate не заполняет).
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Restore заменяет всё состояние содержимым снимка одной операцией.
	Restore(ctx context.Context, snap *Snapshot) error

	// ClearAll удаляет все данные.
	ClearAll(ctx context.Context) error
}

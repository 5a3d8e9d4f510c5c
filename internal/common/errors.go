// Package common — errors.go определяет ошибки, общие для всех модулей.
// Они позволяют CLI и HTTP-обработчикам различать типы проблем
// и показывать пользователю понятные сообщения.
package common

import "errors"

// Ошибки экономики (монеты, сундуки)
var (
	// ErrInsufficientCoins — на счёте меньше монет, чем нужно для списания
	ErrInsufficientCoins = errors.New("недостаточно монет на счёте")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrUnknownTier — такого сундука не существует
	ErrUnknownTier = errors.New("неизвестный тип сундука")
	// ErrEmptyDrawTable — таблица вероятностей пуста
	ErrEmptyDrawTable = errors.New("пустая таблица вероятностей")
	// ErrTransactionFailed — сбой после списания, монеты возвращены
	ErrTransactionFailed = errors.New("не удалось открыть сундук, монеты возвращены")
	// ErrRefundFailed — сбой после списания И сбой возврата монет
	ErrRefundFailed = errors.New("не удалось вернуть монеты после сбоя")
)

// Ошибки тренировок
var (
	// ErrEmptySession — тренировка без подходов или без повторений
	ErrEmptySession = errors.New("тренировка должна содержать хотя бы один повтор")
	// ErrInvalidReps — отрицательное количество повторений в подходе
	ErrInvalidReps = errors.New("количество повторений не может быть отрицательным")
)

// Ошибки хранилища и бэкапов
var (
	// ErrPersistenceUnavailable — хранилище недоступно
	ErrPersistenceUnavailable = errors.New("хранилище недоступно")
	// ErrInvalidImport — в бэкапе нет обязательных полей
	ErrInvalidImport = errors.New("некорректный файл бэкапа")
	// ErrBadPassphrase — бэкап зашифрован другим паролем или повреждён
	ErrBadPassphrase = errors.New("неверный пароль бэкапа")
)

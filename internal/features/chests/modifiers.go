// Package chests — modifiers.go реализует модификаторы шансов.
//
// Два бонуса сдвигают вероятность к дорогим картам:
//   - Стрик: открытия сундуков несколько дней подряд (от 3 дней).
//     Бонус 2% за день стрика, но не больше 10%.
//   - Дневной: первое открытие за календарные сутки, +5%.
//
// Таблица делится по позиции: первые 60% записей — «дешёвые», остальные —
// «дорогие». Бонус забирается из дешёвых пропорционально их вероятности
// и добавляется дорогим пропорционально их вероятности.
package chests

import (
	"serotonyl.ru/pullups/internal/calendar"
)

// Константы модификаторов
const (
	StreakBonusThreshold = 3    // минимальный стрик для бонуса
	StreakBonusPerDay    = 0.02 // +2% за каждый день стрика
	StreakBonusCap       = 0.10 // не больше 10%
	DailyBonus           = 0.05 // +5% за первое открытие дня
	HighSegmentStart     = 0.6  // дорогие записи начинаются с floor(n × 0.6)
	ProbabilityFloor     = 0.01 // минимальная вероятность перед нормализацией
)

// ModifierEngine считает бонусы по состоянию модификаторов.
// Все даты берутся из календаря UTC+5.
type ModifierEngine struct {
	cal *calendar.Calendar
}

// NewModifierEngine создаёт движок модификаторов.
func NewModifierEngine(cal *calendar.Calendar) *ModifierEngine {
	return &ModifierEngine{cal: cal}
}

// IsDailyBonusActive — дневной бонус включён и сегодня ещё не было открытий.
func (e *ModifierEngine) IsDailyBonusActive(state ModifierState) bool {
	return state.DailyBonusEnabled && state.LastOpenDate != e.cal.Today()
}

// IsStreakBonusActive — бонус стрика включён и стрик не меньше порога.
func (e *ModifierEngine) IsStreakBonusActive(state ModifierState) bool {
	return state.StreakBonusEnabled && state.CurrentStreak >= StreakBonusThreshold
}

// BonusMagnitude возвращает суммарный сдвиг вероятности (0 — бонусов нет).
func (e *ModifierEngine) BonusMagnitude(state ModifierState) float64 {
	var bonus float64
	if e.IsStreakBonusActive(state) {
		bonus += min(float64(state.CurrentStreak)*StreakBonusPerDay, StreakBonusCap)
	}
	if e.IsDailyBonusActive(state) {
		bonus += DailyBonus
	}
	return bonus
}

// Advance вызывается один раз после успешного открытия.
//   - Повторное открытие в тот же день ничего не меняет.
//   - Открытие на следующий день после прошлого увеличивает стрик на 1.
//   - Любой пропуск (или первое открытие) сбрасывает стрик в 1.
func (e *ModifierEngine) Advance(state ModifierState) ModifierState {
	today := e.cal.Today()
	if state.LastOpenDate == today {
		return state
	}

	next := state
	if state.LastOpenDate != "" && state.LastOpenDate == calendar.AddDays(today, -1) {
		next.CurrentStreak = state.CurrentStreak + 1
	} else {
		next.CurrentStreak = 1
	}
	next.LastOpenDate = today
	return next
}

// Apply возвращает таблицу с учётом активных бонусов.
// Без бонусов возвращается копия исходной таблицы.
// Результат всегда в сумме даёт 1, и каждая вероятность > 0.
func (e *ModifierEngine) Apply(table Table, state ModifierState) Table {
	bonus := e.BonusMagnitude(state)
	return shiftTowardHigh(table, bonus)
}

// shiftTowardHigh переносит массу bonus из дешёвого сегмента в дорогой.
func shiftTowardHigh(table Table, bonus float64) Table {
	out := table.clone()
	split := int(float64(len(out)) * HighSegmentStart)
	if bonus <= 0 || split == 0 || split >= len(out) {
		return out
	}

	low, high := out[:split], out[split:]
	lowMass, highMass := Table(low).Sum(), Table(high).Sum()
	if lowMass <= 0 {
		return out
	}

	// Нельзя забрать больше, чем есть в дешёвом сегменте
	shift := min(bonus, lowMass)

	for i := range low {
		low[i].Probability -= shift * low[i].Probability / lowMass
	}
	for i := range high {
		if highMass > 0 {
			high[i].Probability += shift * high[i].Probability / highMass
		} else {
			high[i].Probability += shift / float64(len(high))
		}
	}

	for i := range out {
		out[i].Probability = max(out[i].Probability, ProbabilityFloor)
	}

	sum := out.Sum()
	for i := range out {
		out[i].Probability /= sum
	}
	return out
}

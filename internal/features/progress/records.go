// Package progress — records.go считает личные рекорды.
package progress

// PersonalRecordsFor возвращает рекорды по истории. Пустая история — нули.
func PersonalRecordsFor(sessions []*Session) PersonalRecords {
	var r PersonalRecords
	for _, s := range sessions {
		r.MaxSingleSession = max(r.MaxSingleSession, s.TotalReps)
		for _, set := range s.Sets {
			r.MaxSingleSet = max(r.MaxSingleSet, set.Reps)
		}
	}
	for _, d := range DailyTotals(sessions) {
		r.MaxDailyTotal = max(r.MaxDailyTotal, d.TotalReps)
	}
	return r
}

// IsPersonalRecord — побила ли тренировка рекорд за одну тренировку.
// Первая тренировка рекордом не считается: побивать ещё нечего.
func IsPersonalRecord(session *Session, previous []*Session) bool {
	if len(previous) == 0 {
		return false
	}
	return session.TotalReps > PersonalRecordsFor(previous).MaxSingleSession
}

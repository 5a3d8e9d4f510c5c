// Package progress — quality.go оценивает качество тренировки (0–100).
//
// Оценка складывается из трёх частей:
//   - стабильность (30%): отклонение от среднего последних 5 тренировок;
//   - прогресс (50%): насколько тренировка близка к рекорду;
//   - восстановление (20%): была ли тренировка за последние 24 часа.
package progress

import (
	"math"
	"time"
)

const (
	qualityRecentWindow = 5
	weightConsistency   = 0.3
	weightImprovement   = 0.5
	weightFatigue       = 0.2
)

// QualityResult — оценка и её составляющие.
type QualityResult struct {
	Score       int `json:"score"`
	Consistency int `json:"consistency"`
	Improvement int `json:"improvement"`
	Fatigue     int `json:"fatigueManagement"`
}

// SessionQuality оценивает тренировку относительно предыдущих.
// previous — тренировки до новой, в любом порядке.
func SessionQuality(session *Session, previous []*Session) QualityResult {
	ordered := newestFirst(previous)

	consistency := 50.0
	if len(ordered) > 0 {
		window := ordered[:min(qualityRecentWindow, len(ordered))]
		sum := 0
		for _, s := range window {
			sum += s.TotalReps
		}
		avg := float64(sum) / float64(len(window))
		deviation := math.Abs(float64(session.TotalReps)-avg) / math.Max(1, avg)
		consistency = math.Max(0, math.Min(100, 100-deviation*100))
	}

	best := float64(PersonalRecordsFor(previous).MaxSingleSession)
	reps := float64(session.TotalReps)
	var improvement float64
	switch {
	case reps > best:
		improvement = 100
	case reps >= best*0.9:
		improvement = 80
	case reps >= best*0.7:
		improvement = 60
	default:
		improvement = 40
	}

	fatigue := 70.0
	for _, s := range previous {
		if session.CreatedAt.Sub(s.CreatedAt) < 24*time.Hour {
			fatigue = 50
			break
		}
	}

	score := math.Round(consistency*weightConsistency + improvement*weightImprovement + fatigue*weightFatigue)
	return QualityResult{
		Score:       int(math.Max(0, math.Min(100, score))),
		Consistency: int(math.Round(consistency)),
		Improvement: int(improvement),
		Fatigue:     int(fatigue),
	}
}

// QualityHistory пересчитывает оценку каждой тренировки относительно
// тренировок, сделанных до неё. Порядок результата — от старой к новой.
func QualityHistory(sessions []*Session) []int {
	ordered := newestFirst(sessions)
	scores := make([]int, 0, len(ordered))
	for i := len(ordered) - 1; i >= 0; i-- {
		scores = append(scores, SessionQuality(ordered[i], ordered[i+1:]).Score)
	}
	return scores
}

// Package economy — rewards.go содержит формулу награды за тренировку.
package economy

// Константы формулы награды
const (
	CoinsPerRep         = 1   // базовая награда за каждый повтор
	MilestoneBonus      = 100 // за каждую новую веху
	StreakDayBonus      = 10  // за каждый день стрика
	PersonalRecordBonus = 150 // за личный рекорд
	// Бонус за качество: floor(reps × quality/100 × 0.5),
	// то есть reps × quality / 200 в целых числах.
	qualityBonusDivisor = 200
)

// RewardInput — итоговые сигналы тренировки, из которых считается награда.
// Все сигналы уже посчитаны до вызова CalculateReward.
type RewardInput struct {
	TotalReps      int  // повторов в тренировке
	QualityScore   int  // качество 0–100
	NewMilestones  int  // сколько оплачиваемых вех открыто
	StreakDays     int  // дни стрика, за которые положен бонус
	PersonalRecord bool // побит ли личный рекорд
}

// RewardBreakdown — награда по составляющим (для вывода в CLI и API).
type RewardBreakdown struct {
	Base      int64 `json:"base"`
	Quality   int64 `json:"quality"`
	Milestone int64 `json:"milestone"`
	Streak    int64 `json:"streak"`
	Record    int64 `json:"record"`
	Total     int64 `json:"total"`
}

// CalculateReward считает, сколько монет положено за тренировку.
//
// Формула:
//
//	reps + floor(reps × q/100 × 0.5) + 100 × вехи + 10 × дни стрика + 150 за рекорд
//
// Отрицательные входы считаются нулём, качество ограничивается 0–100,
// поэтому результат всегда >= 0.
func CalculateReward(in RewardInput) int64 {
	return Breakdown(in).Total
}

// Breakdown раскладывает награду на составляющие.
func Breakdown(in RewardInput) RewardBreakdown {
	reps := int64(max(in.TotalReps, 0))
	quality := int64(min(max(in.QualityScore, 0), 100))

	b := RewardBreakdown{
		Base:      reps * CoinsPerRep,
		Quality:   reps * quality / qualityBonusDivisor,
		Milestone: int64(max(in.NewMilestones, 0)) * MilestoneBonus,
		Streak:    int64(max(in.StreakDays, 0)) * StreakDayBonus,
	}
	if in.PersonalRecord {
		b.Record = PersonalRecordBonus
	}
	b.Total = b.Base + b.Quality + b.Milestone + b.Streak + b.Record
	return b
}

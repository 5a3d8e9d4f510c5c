package progress

import (
	"fmt"
	"time"

	"serotonyl.ru/pullups/internal/calendar"
)

// sessionOn создаёт тренировку на дату (полдень UTC+5) с одним подходом.
func sessionOn(date string, reps int) *Session {
	t, err := calendar.Parse(date)
	if err != nil {
		panic(err)
	}
	created := t.Add(12 * time.Hour)
	return &Session{
		ID:        fmt.Sprintf("s-%s-%d", date, reps),
		CreatedAt: created.UTC(),
		Date:      date,
		Sets:      []Set{{Reps: reps}},
		TotalReps: reps,
	}
}

// consecutive создаёт по тренировке на каждый из n дней, заканчивая last.
func consecutive(last string, n, reps int) []*Session {
	out := make([]*Session, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, sessionOn(calendar.AddDays(last, -i), reps))
	}
	return out
}

func noonOn(date string) time.Time {
	t, err := calendar.Parse(date)
	if err != nil {
		panic(err)
	}
	return t.Add(12 * time.Hour)
}

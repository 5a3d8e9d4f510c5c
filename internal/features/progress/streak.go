// Package progress — streak.go считает серии дней и суммы по дням.
// Дни берутся из календарной даты тренировки (UTC+5).
package progress

import (
	"sort"

	"serotonyl.ru/pullups/internal/calendar"
)

// LifetimeTotal — сумма повторов за всё время.
func LifetimeTotal(sessions []*Session) int {
	total := 0
	for _, s := range sessions {
		total += s.TotalReps
	}
	return total
}

// DailyTotals группирует тренировки по дате, по возрастанию даты.
func DailyTotals(sessions []*Session) []DailyTotal {
	byDate := make(map[string]*DailyTotal)
	for _, s := range sessions {
		d, ok := byDate[s.Date]
		if !ok {
			d = &DailyTotal{Date: s.Date}
			byDate[s.Date] = d
		}
		d.TotalReps += s.TotalReps
		d.Sessions++
	}

	out := make([]DailyTotal, 0, len(byDate))
	for _, d := range byDate {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// TotalOn — сумма повторов за конкретную дату.
func TotalOn(sessions []*Session, date string) int {
	total := 0
	for _, s := range sessions {
		if s.Date == date {
			total += s.TotalReps
		}
	}
	return total
}

// activeDays — множество дат с тренировками.
func activeDays(sessions []*Session) map[string]bool {
	days := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		days[s.Date] = true
	}
	return days
}

// runEndingOn — сколько дней подряд с тренировками, заканчивая date.
func runEndingOn(days map[string]bool, date string) int {
	n := 0
	for days[date] {
		n++
		date = calendar.AddDays(date, -1)
	}
	return n
}

// StreakFor считает серию дней относительно today.
//
// Current — дни подряд, заканчивая сегодня (0, если сегодня тренировки не было).
// AtRisk — серия, заканчивающаяся вчера, если сегодня ещё не тренировались:
// её можно продлить до полуночи.
// Longest — самая длинная серия подряд идущих дат за всё время.
func StreakFor(sessions []*Session, today string) StreakInfo {
	if len(sessions) == 0 {
		return StreakInfo{}
	}

	days := activeDays(sessions)
	info := StreakInfo{Current: runEndingOn(days, today)}
	if info.Current == 0 {
		info.AtRisk = runEndingOn(days, calendar.AddDays(today, -1))
	}

	dates := make([]string, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	info.LastActiveDate = dates[len(dates)-1]

	run := 1
	info.Longest = 1
	for i := 1; i < len(dates); i++ {
		if calendar.DaysBetween(dates[i-1], dates[i]) == 1 {
			run++
		} else {
			run = 1
		}
		info.Longest = max(info.Longest, run)
	}
	return info
}

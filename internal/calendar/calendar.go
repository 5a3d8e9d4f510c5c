// Package calendar — единственный источник «текущей даты» в проекте.
// Все даты считаются в фиксированном часовом поясе UTC+5, независимо
// от локального времени устройства. Стрики, дневной бонус сундуков и
// отметки в журнале используют только этот пакет.
package calendar

import (
	"strings"
	"time"
)

// Layout — формат календарной даты (yyyy-mm-dd).
const Layout = "2006-01-02"

// offsetSeconds — смещение часового пояса (UTC+5), без перехода на летнее время.
const offsetSeconds = 5 * 60 * 60

// Zone — фиксированный часовой пояс UTC+5.
var Zone = time.FixedZone("UTC+5", offsetSeconds)

// Clock возвращает текущий момент времени.
// В тестах подменяется на фиксированные часы.
type Clock func() time.Time

// Calendar вычисляет календарные даты в поясе UTC+5.
type Calendar struct {
	now Clock
}

// Option настраивает Calendar.
type Option func(*Calendar)

// WithClock подменяет источник времени.
func WithClock(c Clock) Option {
	return func(cal *Calendar) {
		cal.now = c
	}
}

// New создаёт календарь. По умолчанию используется time.Now.
func New(opts ...Option) *Calendar {
	c := &Calendar{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now возвращает текущий момент в поясе UTC+5.
func (c *Calendar) Now() time.Time {
	return c.now().In(Zone)
}

// Location возвращает часовой пояс календаря (нужен планировщику cron).
func (c *Calendar) Location() *time.Location {
	return Zone
}

// Today возвращает сегодняшнюю дату в формате yyyy-mm-dd.
func (c *Calendar) Today() string {
	return DateOf(c.now())
}

// Yesterday возвращает вчерашнюю дату.
func (c *Calendar) Yesterday() string {
	return AddDays(c.Today(), -1)
}

// PastDates возвращает n дат, заканчивая сегодняшней, от новой к старой.
// Для n <= 0 возвращает пустой срез.
func (c *Calendar) PastDates(n int) []string {
	if n <= 0 {
		return []string{}
	}
	today := midnight(c.now())
	dates := make([]string, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, today.AddDate(0, 0, -i).Format(Layout))
	}
	return dates
}

// UntilMidnight возвращает время до следующей полуночи по UTC+5.
func (c *Calendar) UntilMidnight() time.Duration {
	now := c.now().In(Zone)
	next := midnight(now).AddDate(0, 0, 1)
	return next.Sub(now)
}

// DateOf переводит произвольный момент времени в календарную дату UTC+5.
func DateOf(t time.Time) string {
	return t.In(Zone).Format(Layout)
}

// Parse разбирает дату yyyy-mm-dd как полночь в поясе UTC+5.
func Parse(date string) (time.Time, error) {
	return time.ParseInLocation(Layout, date, Zone)
}

// AddDays сдвигает дату на n дней. Некорректная дата возвращается как есть.
func AddDays(date string, n int) string {
	t, err := Parse(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(Layout)
}

// DaysBetween возвращает количество дней от from до to (to - from).
// Если одна из дат некорректна, возвращается 0.
func DaysBetween(from, to string) int {
	a, err := Parse(from)
	if err != nil {
		return 0
	}
	b, err := Parse(to)
	if err != nil {
		return 0
	}
	// Пояс фиксированный, поэтому сутки всегда ровно 24 часа
	return int(b.Sub(a).Hours() / 24)
}

// FormatForDisplay форматирует дату для экрана: "FEB 13".
// Некорректная дата возвращается без изменений.
func FormatForDisplay(date string) string {
	t, err := Parse(date)
	if err != nil {
		return date
	}
	return strings.ToUpper(t.Format("Jan")) + " " + t.Format("2")
}

// midnight возвращает начало суток UTC+5 для момента t.
func midnight(t time.Time) time.Time {
	local := t.In(Zone)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Zone)
}

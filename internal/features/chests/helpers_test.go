package chests

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"serotonyl.ru/pullups/internal/calendar"
)

// seededSource — детерминированный источник на math/rand/v2.
type seededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSeededSource(seed uint64) *seededSource {
	return &seededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Float64() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64(), nil
}

// scriptedSource выдаёт заранее заданные значения по кругу.
type scriptedSource struct {
	values []float64
	i      int
}

func (s *scriptedSource) Float64() (float64, error) {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v, nil
}

// failingSource всегда возвращает ошибку.
type failingSource struct{}

func (failingSource) Float64() (float64, error) {
	return 0, errors.New("entropy exhausted")
}

// fixedCalendar — календарь, у которого «сейчас» задаётся в тесте.
type fixedCalendar struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedCalendar(date string) (*calendar.Calendar, *fixedCalendar) {
	t, err := calendar.Parse(date)
	if err != nil {
		panic(err)
	}
	fc := &fixedCalendar{now: t.Add(12 * time.Hour)}
	return calendar.New(calendar.WithClock(fc.Now)), fc
}

func (f *fixedCalendar) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixedCalendar) AddDays(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.AddDate(0, 0, n)
}

// Package chests — drawtable.go содержит таблицы вероятностей и розыгрыш.
package chests

import (
	"fmt"
	"math"

	"serotonyl.ru/pullups/internal/common"
)

// Entry — значение карты и его вероятность.
type Entry struct {
	Value       int     `json:"value"`
	Probability float64 `json:"probability"`
}

// Table — упорядоченная по значению таблица вероятностей.
// Сумма вероятностей равна 1 (с точностью SumTolerance).
type Table []Entry

// SumTolerance — допустимое отклонение суммы вероятностей от 1.
const SumTolerance = 1e-9

// TableFor возвращает копию базовой таблицы для сундука.
func TableFor(t Tier) (Table, error) {
	var base Table
	switch t {
	case TierCommon:
		base = Table{
			{Value: 10, Probability: 0.20},
			{Value: 20, Probability: 0.30},
			{Value: 30, Probability: 0.50},
		}
	case TierRare:
		base = Table{
			{Value: 20, Probability: 0.10},
			{Value: 40, Probability: 0.15},
			{Value: 60, Probability: 0.20},
			{Value: 80, Probability: 0.25},
			{Value: 100, Probability: 0.30},
		}
	case TierEpic:
		base = Table{
			{Value: 50, Probability: 0.25},
			{Value: 80, Probability: 0.30},
			{Value: 100, Probability: 0.20},
			{Value: 120, Probability: 0.15},
			{Value: 150, Probability: 0.05},
			{Value: 180, Probability: 0.05},
		}
	default:
		return nil, common.ErrUnknownTier
	}
	return base, nil
}

// Sum возвращает сумму вероятностей.
func (t Table) Sum() float64 {
	var sum float64
	for _, e := range t {
		sum += e.Probability
	}
	return sum
}

// Values возвращает значения таблицы по порядку.
func (t Table) Values() []int {
	values := make([]int, len(t))
	for i, e := range t {
		values[i] = e.Value
	}
	return values
}

// Contains проверяет, есть ли значение в таблице.
func (t Table) Contains(value int) bool {
	for _, e := range t {
		if e.Value == value {
			return true
		}
	}
	return false
}

// Validate проверяет, что таблица не пуста, вероятности положительны
// и в сумме дают 1.
func (t Table) Validate() error {
	if len(t) == 0 {
		return common.ErrEmptyDrawTable
	}
	for _, e := range t {
		if e.Probability <= 0 {
			return fmt.Errorf("вероятность значения %d должна быть положительной: %v", e.Value, e.Probability)
		}
	}
	if sum := t.Sum(); math.Abs(sum-1) > SumTolerance {
		return fmt.Errorf("сумма вероятностей %v != 1", sum)
	}
	return nil
}

func (t Table) clone() Table {
	cp := make(Table, len(t))
	copy(cp, t)
	return cp
}

// Draw разыгрывает одно значение из таблицы.
//
// Берётся равномерное r из [0,1), затем таблица проходится с накоплением
// вероятности; возвращается первое значение, где накопленная сумма >= r.
// Если из-за округления масса не набралась, возвращается последнее значение.
func Draw(table Table, rnd RandomSource) (int, error) {
	if len(table) == 0 {
		return 0, common.ErrEmptyDrawTable
	}

	r, err := rnd.Float64()
	if err != nil {
		return 0, fmt.Errorf("ошибка генератора случайных чисел: %w", err)
	}

	var cumulative float64
	for _, e := range table {
		cumulative += e.Probability
		if cumulative >= r {
			return e.Value, nil
		}
	}
	return table[len(table)-1].Value, nil
}

// DrawMany делает count независимых розыгрышей (с возвращением):
// каждый розыгрыш видит одну и ту же таблицу.
func DrawMany(table Table, count int, rnd RandomSource) ([]int, error) {
	if count < 0 {
		return nil, fmt.Errorf("количество карт не может быть отрицательным: %d", count)
	}
	values := make([]int, 0, count)
	for i := 0; i < count; i++ {
		v, err := Draw(table, rnd)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// Package progress — ranks.go содержит лестницу рангов.
// Ранг всегда вычисляется из суммы повторов за всё время и нигде не хранится.
package progress

// Rank — ступень лестницы рангов.
type Rank struct {
	Tier      int    `json:"tier"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Threshold int    `json:"threshold"` // минимальная сумма повторов
}

// RankProgress — текущий ранг, следующий и доля пути до него (0..1).
type RankProgress struct {
	Current    Rank    `json:"current"`
	Next       *Rank   `json:"next,omitempty"` // nil на последнем ранге
	Fraction   float64 `json:"fraction"`
	RepsToNext int     `json:"repsToNext"`
}

const (
	colorBronze    = "#cd7f32"
	colorSilver    = "#c0c0c0"
	colorGold      = "#ffd700"
	colorPlatinum  = "#00aaff"
	colorDiamond   = "#7df9ff"
	colorElite     = "#ffffff"
	colorAscendant = "#ff3bff"
)

// ladder упорядочена по возрастанию порога.
var ladder = []Rank{
	{Tier: 0, Name: "Bronze III", Color: colorBronze, Threshold: 0},
	{Tier: 1, Name: "Bronze II", Color: colorBronze, Threshold: 100},
	{Tier: 2, Name: "Bronze I", Color: colorBronze, Threshold: 250},
	{Tier: 3, Name: "Silver III", Color: colorSilver, Threshold: 500},
	{Tier: 4, Name: "Silver II", Color: colorSilver, Threshold: 750},
	{Tier: 5, Name: "Silver I", Color: colorSilver, Threshold: 1000},
	{Tier: 6, Name: "Gold III", Color: colorGold, Threshold: 1500},
	{Tier: 7, Name: "Gold II", Color: colorGold, Threshold: 2000},
	{Tier: 8, Name: "Gold I", Color: colorGold, Threshold: 2500},
	{Tier: 9, Name: "Platinum III", Color: colorPlatinum, Threshold: 3500},
	{Tier: 10, Name: "Platinum II", Color: colorPlatinum, Threshold: 4500},
	{Tier: 11, Name: "Platinum I", Color: colorPlatinum, Threshold: 6000},
	{Tier: 12, Name: "Diamond III", Color: colorDiamond, Threshold: 8000},
	{Tier: 13, Name: "Diamond II", Color: colorDiamond, Threshold: 10000},
	{Tier: 14, Name: "Diamond I", Color: colorDiamond, Threshold: 13000},
	{Tier: 15, Name: "Elite", Color: colorElite, Threshold: 17000},
	{Tier: 16, Name: "Ascendant", Color: colorAscendant, Threshold: 25000},
}

// Ranks возвращает копию лестницы рангов.
func Ranks() []Rank {
	out := make([]Rank, len(ladder))
	copy(out, ladder)
	return out
}

// RankFor возвращает наивысший ранг, порог которого <= total.
// Для отрицательной суммы — самый нижний ранг.
func RankFor(total int) Rank {
	for i := len(ladder) - 1; i >= 0; i-- {
		if total >= ladder[i].Threshold {
			return ladder[i]
		}
	}
	return ladder[0]
}

// NextRank возвращает ранг после r или nil, если r — последний.
func NextRank(r Rank) *Rank {
	if r.Tier < 0 || r.Tier+1 >= len(ladder) {
		return nil
	}
	next := ladder[r.Tier+1]
	return &next
}

// RankProgressFor возвращает ранг и прогресс до следующего.
// На последнем ранге прогресс равен 1.
func RankProgressFor(total int) RankProgress {
	current := RankFor(total)
	next := NextRank(current)
	if next == nil {
		return RankProgress{Current: current, Fraction: 1}
	}

	fraction := float64(total-current.Threshold) / float64(next.Threshold-current.Threshold)
	return RankProgress{
		Current:    current,
		Next:       next,
		Fraction:   min(max(fraction, 0), 1),
		RepsToNext: max(next.Threshold-total, 0),
	}
}

// CheckForPromotion возвращает новый ранг, если переход от oldTotal
// к newTotal поднял ранг, иначе nil.
func CheckForPromotion(oldTotal, newTotal int) *Rank {
	before, after := RankFor(oldTotal), RankFor(newTotal)
	if after.Tier > before.Tier {
		return &after
	}
	return nil
}

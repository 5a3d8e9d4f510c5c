package progress

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"serotonyl.ru/pullups/internal/common"
)

// ParseSessionArgs разбирает короткую запись тренировки:
//
//	10 8 6          — три подхода
//	8x7.5           — 8 повторов с отягощением 7.5 кг
//	#утро #турник   — теги
//	t=12m           — длительность
func ParseSessionArgs(args []string) (SessionInput, error) {
	var in SessionInput
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "#"):
			if tag := strings.TrimPrefix(arg, "#"); tag != "" {
				in.Tags = append(in.Tags, tag)
			}

		case strings.HasPrefix(arg, "t="):
			d, err := time.ParseDuration(strings.TrimPrefix(arg, "t="))
			if err != nil || d < 0 {
				return SessionInput{}, fmt.Errorf("некорректная длительность %q", arg)
			}
			seconds := int(d.Seconds())
			in.Duration = &seconds

		default:
			set, err := parseSet(arg)
			if err != nil {
				return SessionInput{}, err
			}
			in.Sets = append(in.Sets, set)
		}
	}
	if len(in.Sets) == 0 {
		return SessionInput{}, common.ErrEmptySession
	}
	return in, nil
}

func parseSet(arg string) (Set, error) {
	repsPart, weightPart, hasWeight := strings.Cut(strings.ReplaceAll(arg, "×", "x"), "x")

	reps, err := strconv.Atoi(repsPart)
	if err != nil {
		return Set{}, fmt.Errorf("непонятный подход %q", arg)
	}
	if reps < 0 {
		return Set{}, common.ErrInvalidReps
	}

	set := Set{Reps: reps}
	if hasWeight {
		w, err := strconv.ParseFloat(strings.TrimSuffix(weightPart, "кг"), 64)
		if err != nil || w < 0 {
			return Set{}, fmt.Errorf("некорректный вес в %q", arg)
		}
		set.Weight = &w
	}
	return set, nil
}

package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralizeCoins(t *testing.T) {
	cases := map[int64]string{
		0:   "монет",
		1:   "монета",
		2:   "монеты",
		4:   "монеты",
		5:   "монет",
		11:  "монет",
		12:  "монет",
		21:  "монета",
		22:  "монеты",
		101: "монета",
		111: "монет",
		-3:  "монеты",
	}
	for n, want := range cases {
		assert.Equal(t, want, PluralizeCoins(n), "n=%d", n)
	}
}

func TestPluralizeDaysAndReps(t *testing.T) {
	assert.Equal(t, "день", PluralizeDays(1))
	assert.Equal(t, "дня", PluralizeDays(3))
	assert.Equal(t, "дней", PluralizeDays(14))
	assert.Equal(t, "повтор", PluralizeReps(31))
	assert.Equal(t, "повтора", PluralizeReps(42))
	assert.Equal(t, "повторов", PluralizeReps(100))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "5 000", FormatNumber(5000))
	assert.Equal(t, "20 005", FormatNumber(20005))
	assert.Equal(t, "1 000 000", FormatNumber(1000000))
	assert.Equal(t, "-2 350", FormatNumber(-2350))
}

func TestFormatBalanceAndAmount(t *testing.T) {
	assert.Equal(t, "5 000 монет", FormatBalance(5000))
	assert.Equal(t, "+1 монета", FormatCoinsAmount(1))
	assert.Equal(t, "-10 000 монет", FormatCoinsAmount(-10000))
}

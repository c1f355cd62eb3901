package voice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFoldPartialHourCarriesResidue(t *testing.T) {
	a := Accrual{}

	a, hours := a.Fold(3661)
	require.Equal(t, int64(1), hours)
	require.Equal(t, int64(3661), a.AccumulatedSeconds)
	require.Equal(t, int64(1), a.HoursAwarded)

	// Остаток 61 секунда + 250 новых: полного часа ещё нет
	a, hours = a.Fold(250)
	require.Equal(t, int64(0), hours)
	require.Equal(t, int64(3911), a.AccumulatedSeconds)
	require.Equal(t, int64(1), a.HoursAwarded)
}

func TestFoldSplitSessionsEqualOneLong(t *testing.T) {
	// Две сессии по 1800 секунд дают столько же, сколько одна в 3600
	split := Accrual{}
	var splitHours int64
	for _, elapsed := range []int64{1800, 1800} {
		var h int64
		split, h = split.Fold(elapsed)
		splitHours += h
	}

	long := Accrual{}
	long, longHours := long.Fold(3600)

	require.Equal(t, longHours, splitHours)
	require.Equal(t, long.AccumulatedSeconds, split.AccumulatedSeconds)
	require.Equal(t, long.HoursAwarded, split.HoursAwarded)
}

func TestFoldNeverAwardsTwice(t *testing.T) {
	a := Accrual{AccumulatedSeconds: 7200, HoursAwarded: 2}

	// Нулевой интервал: всё уже оплачено
	a, hours := a.Fold(0)
	require.Equal(t, int64(0), hours)
	require.Equal(t, int64(2), a.HoursAwarded)

	a, hours = a.Fold(3599)
	require.Equal(t, int64(0), hours)

	a, hours = a.Fold(1)
	require.Equal(t, int64(1), hours)
	require.Equal(t, int64(3), a.HoursAwarded)
}

func TestFoldNegativeElapsedIgnored(t *testing.T) {
	a := Accrual{AccumulatedSeconds: 100, HoursAwarded: 0}

	a, hours := a.Fold(-500)
	require.Equal(t, int64(0), hours)
	require.Equal(t, int64(100), a.AccumulatedSeconds)
}

func TestAwardLiveThenFoldConserved(t *testing.T) {
	// Живое начисление по открытой сессии, затем её закрытие:
	// суммарно ровно floor(total/3600) часов
	a := Accrual{}

	a, hours := a.AwardLive(5400) // полтора часа в открытой сессии
	require.Equal(t, int64(1), hours)
	require.Equal(t, int64(0), a.AccumulatedSeconds) // время ещё не сложено
	require.Equal(t, int64(1), a.HoursAwarded)

	// Сессия закрывается спустя ещё полчаса: всего 7200 секунд
	a, hours = a.Fold(7200)
	require.Equal(t, int64(1), hours)
	require.Equal(t, int64(7200), a.AccumulatedSeconds)
	require.Equal(t, int64(2), a.HoursAwarded)
}

func TestAwardLiveDoesNotLowerAwarded(t *testing.T) {
	a := Accrual{AccumulatedSeconds: 0, HoursAwarded: 3}

	a, hours := a.AwardLive(3600)
	require.Equal(t, int64(0), hours)
	require.Equal(t, int64(3), a.HoursAwarded)
}

func TestConservationUnderArbitrarySplits(t *testing.T) {
	// Как бы ни дробилось время, сумма часов равна floor(сумма/3600)
	intervals := []int64{17, 3583, 7200, 1, 59, 3540, 120, 10800}

	var total int64
	a := Accrual{}
	var awarded int64
	for _, iv := range intervals {
		total += iv
		var h int64
		a, h = a.Fold(iv)
		awarded += h
	}

	require.Equal(t, total/3600, awarded)
	require.Equal(t, total, a.AccumulatedSeconds)
	require.Equal(t, awarded, a.HoursAwarded)
}

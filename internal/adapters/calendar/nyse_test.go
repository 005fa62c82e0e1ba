package calendar

import (
	"testing"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNYSE(t *testing.T) *NYSE {
	t.Helper()
	c, err := NewNYSE()
	require.NoError(t, err)
	return c
}

func trading(t *testing.T, c *NYSE, d time.Time) bool {
	t.Helper()
	ok, err := c.IsTradingDay(d)
	require.NoError(t, err)
	return ok
}

func TestNYSE_RegularWeek(t *testing.T) {
	c := mustNYSE(t)

	// semana del 4 de marzo de 2024
	assert.True(t, trading(t, c, date(2024, time.March, 4)))  // lunes
	assert.True(t, trading(t, c, date(2024, time.March, 8)))  // viernes
	assert.False(t, trading(t, c, date(2024, time.March, 9))) // sábado
	assert.False(t, trading(t, c, date(2024, time.March, 10)))
}

func TestNYSE_FixedAndFloatingHolidays2024(t *testing.T) {
	c := mustNYSE(t)

	holidays := []time.Time{
		date(2024, time.January, 1),   // Año Nuevo (lunes)
		date(2024, time.January, 15),  // MLK, tercer lunes
		date(2024, time.February, 19), // Presidents, tercer lunes
		date(2024, time.March, 29),    // Viernes Santo (Pascua 31-mar)
		date(2024, time.May, 27),      // Memorial, último lunes
		date(2024, time.June, 19),     // Juneteenth (miércoles)
		date(2024, time.July, 4),      // Independencia (jueves)
		date(2024, time.September, 2), // Labor, primer lunes
		date(2024, time.November, 28), // Thanksgiving, cuarto jueves
		date(2024, time.December, 25), // Navidad (miércoles)
	}
	for _, h := range holidays {
		assert.False(t, trading(t, c, h), h.Format(time.DateOnly))
	}

	// los días laborables vecinos sí se negocia
	assert.True(t, trading(t, c, date(2024, time.January, 2)))
	assert.True(t, trading(t, c, date(2024, time.March, 28)))
	assert.True(t, trading(t, c, date(2024, time.November, 27)))
}

func TestNYSE_GoodFridayAcrossYears(t *testing.T) {
	c := mustNYSE(t)

	// Pascua 2021: 4-abr; 2025: 20-abr
	assert.False(t, trading(t, c, date(2021, time.April, 2)))
	assert.False(t, trading(t, c, date(2025, time.April, 18)))
	assert.True(t, trading(t, c, date(2025, time.April, 17)))
}

func TestNYSE_ObservedShifts(t *testing.T) {
	c := mustNYSE(t)

	// 4-jul-2021 cae en domingo: se observa el lunes 5
	assert.False(t, trading(t, c, date(2021, time.July, 5)))

	// Navidad 2021 cae en sábado: se observa el viernes 24
	assert.False(t, trading(t, c, date(2021, time.December, 24)))

	// Año Nuevo 2022 cae en sábado: se observa el 31-dic-2021
	assert.False(t, trading(t, c, date(2021, time.December, 31)))

	// Juneteenth 2021 cae en sábado: se observa el viernes 18
	assert.False(t, trading(t, c, date(2021, time.June, 18)))

	// en 2020 Juneteenth todavía no era festivo
	assert.True(t, trading(t, c, date(2020, time.June, 19)))
}

func TestNYSE_HalfDays(t *testing.T) {
	c := mustNYSE(t)

	// Black Friday 2024
	sess, err := c.SessionTimes(date(2024, time.November, 29))
	require.NoError(t, err)
	assert.True(t, sess.HalfDay)
	assert.Equal(t, 13, sess.Close.Hour())

	// Nochebuena 2024 (martes)
	sess, err = c.SessionTimes(date(2024, time.December, 24))
	require.NoError(t, err)
	assert.True(t, sess.HalfDay)

	// 3-jul-2024 (miércoles, el 4 no es sábado)
	sess, err = c.SessionTimes(date(2024, time.July, 3))
	require.NoError(t, err)
	assert.True(t, sess.HalfDay)

	// un día normal cierra a las 16:00
	sess, err = c.SessionTimes(date(2024, time.March, 4))
	require.NoError(t, err)
	assert.False(t, sess.HalfDay)
	assert.Equal(t, 16, sess.Close.Hour())
	assert.Equal(t, 9, sess.Open.Hour())
	assert.Equal(t, 30, sess.Open.Minute())
	assert.Equal(t, "America/New_York", sess.Close.Location().String())
}

func TestNYSE_July3NotHalfWhenJuly4Saturday(t *testing.T) {
	c := mustNYSE(t)

	// 4-jul-2020 es sábado: el viernes 3 es el festivo observado entero
	assert.False(t, trading(t, c, date(2020, time.July, 3)))
}

func TestNYSE_OutOfRangeDates(t *testing.T) {
	c := mustNYSE(t)

	_, err := c.IsTradingDay(date(2019, time.December, 31))
	require.ErrorIs(t, err, domain.ErrCalendarRange)

	_, err = c.IsTradingDay(date(2031, time.January, 1))
	require.ErrorIs(t, err, domain.ErrCalendarRange)

	_, err = c.SessionTimes(date(2031, time.January, 2))
	require.ErrorIs(t, err, domain.ErrCalendarRange)
}

func TestNYSE_SessionTimesOnHolidayErrors(t *testing.T) {
	c := mustNYSE(t)

	_, err := c.SessionTimes(date(2024, time.December, 25))
	require.Error(t, err)
}

func TestWeekday_TradesMondayToFriday(t *testing.T) {
	c := NewWeekday()

	ok, err := c.IsTradingDay(date(2024, time.March, 4))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IsTradingDay(date(2024, time.March, 9))
	require.NoError(t, err)
	assert.False(t, ok)

	// sin tabla de festivos: Navidad es un día más
	ok, err = c.IsTradingDay(date(2024, time.December, 25))
	require.NoError(t, err)
	assert.True(t, ok)

	sess, err := c.SessionTimes(date(2024, time.March, 4))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 4, 16, 0, 0, 0, time.UTC), sess.Close)
}

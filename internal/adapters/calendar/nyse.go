package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/alejandrodnm/backsim/internal/domain"
	"github.com/alejandrodnm/backsim/internal/ports"
)

// Años para los que se genera la tabla de festivos. Fuera de este rango
// el calendario no sabe responder y devuelve ErrCalendarRange.
const (
	nyseFirstYear = 2020
	nyseLastYear  = 2030
)

type ymd struct {
	year  int
	month time.Month
	day   int
}

func toYMD(t time.Time) ymd {
	y, m, d := t.Date()
	return ymd{year: y, month: m, day: d}
}

// NYSE es el calendario de la bolsa de Nueva York: lunes a viernes menos
// festivos, sesiones de 9:30 a 16:00 hora de Nueva York, con cierres
// adelantados a las 13:00 en las medias jornadas.
type NYSE struct {
	loc      *time.Location
	holidays map[ymd]bool
	halfDays map[ymd]bool
}

// NewNYSE genera las tablas de festivos y medias jornadas 2020-2030.
func NewNYSE() (*NYSE, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("calendar.NewNYSE: loading timezone: %w", err)
	}

	c := &NYSE{
		loc:      loc,
		holidays: make(map[ymd]bool),
		halfDays: make(map[ymd]bool),
	}
	for year := nyseFirstYear; year <= nyseLastYear; year++ {
		c.addHolidays(year)
		c.addHalfDays(year)
	}
	return c, nil
}

func (c *NYSE) addHolidays(year int) {
	// Año Nuevo, observado (el de 2022 cae en el 31-dic-2021)
	c.holiday(observed(date(year, time.January, 1)))
	// MLK, tercer lunes de enero
	c.holiday(nthWeekday(year, time.January, time.Monday, 3))
	// Presidents Day, tercer lunes de febrero
	c.holiday(nthWeekday(year, time.February, time.Monday, 3))
	// Viernes Santo
	c.holiday(goodFriday(year))
	// Memorial Day, último lunes de mayo
	c.holiday(lastWeekday(year, time.May, time.Monday))
	// Juneteenth, desde 2021
	if year >= 2021 {
		c.holiday(observed(date(year, time.June, 19)))
	}
	// 4 de julio, observado
	c.holiday(observed(date(year, time.July, 4)))
	// Labor Day, primer lunes de septiembre
	c.holiday(nthWeekday(year, time.September, time.Monday, 1))
	// Thanksgiving, cuarto jueves de noviembre
	c.holiday(nthWeekday(year, time.November, time.Thursday, 4))
	// Navidad, observada
	c.holiday(observed(date(year, time.December, 25)))
}

func (c *NYSE) addHalfDays(year int) {
	// 3 de julio si es laborable y el 4 no cae en sábado (en ese caso el
	// 3 ya es el festivo observado)
	july3 := date(year, time.July, 3)
	if !isWeekend(july3) && date(year, time.July, 4).Weekday() != time.Saturday {
		c.halfDays[toYMD(july3)] = true
	}

	// Black Friday, el día después de Thanksgiving
	thanksgiving := nthWeekday(year, time.November, time.Thursday, 4)
	c.halfDays[toYMD(thanksgiving.AddDate(0, 0, 1))] = true

	// Nochebuena si es laborable
	dec24 := date(year, time.December, 24)
	if !isWeekend(dec24) {
		c.halfDays[toYMD(dec24)] = true
	}
}

func (c *NYSE) holiday(d time.Time) {
	c.holidays[toYMD(d)] = true
}

// IsTradingDay implementa ports.Calendar.
func (c *NYSE) IsTradingDay(d time.Time) (bool, error) {
	if d.Year() < nyseFirstYear || d.Year() > nyseLastYear {
		return false, fmt.Errorf("calendar: %s outside %d-%d: %w",
			d.Format(time.DateOnly), nyseFirstYear, nyseLastYear, domain.ErrCalendarRange)
	}
	if isWeekend(d) {
		return false, nil
	}
	return !c.holidays[toYMD(d)], nil
}

// SessionTimes implementa ports.Calendar. El día festivo que llegue hasta
// aquí devuelve error; el contrato pide consultar IsTradingDay antes.
func (c *NYSE) SessionTimes(d time.Time) (ports.Session, error) {
	trading, err := c.IsTradingDay(d)
	if err != nil {
		return ports.Session{}, err
	}
	if !trading {
		return ports.Session{}, fmt.Errorf("calendar: %s is not a trading day", d.Format(time.DateOnly))
	}

	half := c.halfDays[toYMD(d)]
	y, m, day := d.Date()
	closeHour := 16
	if half {
		closeHour = 13
	}
	return ports.Session{
		Open:    time.Date(y, m, day, 9, 30, 0, 0, c.loc),
		Close:   time.Date(y, m, day, closeHour, 0, 0, 0, c.loc),
		HalfDay: half,
	}, nil
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// observed mueve un festivo de sábado al viernes anterior y de domingo al
// lunes siguiente.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// nthWeekday devuelve el enésimo día de la semana del mes (n desde 1).
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	first := date(year, month, 1)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday devuelve el último día de la semana del mes.
func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	last := date(year, month+1, 1).AddDate(0, 0, -1)
	back := (int(last.Weekday()) - int(wd) + 7) % 7
	return last.AddDate(0, 0, -back)
}

// goodFriday es el viernes anterior al domingo de Pascua, calculado con el
// algoritmo de Meeus.
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	easter := date(year, time.Month(month), day)
	return easter.AddDate(0, 0, -2)
}

package ports

import "time"

// Session son las horas de apertura y cierre de una jornada de mercado.
type Session struct {
	Open    time.Time
	Close   time.Time
	HalfDay bool
}

// Calendar decide qué días se negocia y con qué horario.
type Calendar interface {
	// IsTradingDay indica si la fecha (se ignora la hora) es jornada hábil.
	// Fuera del rango que el calendario conoce devuelve un error que
	// satisface errors.Is(err, domain.ErrCalendarRange).
	IsTradingDay(d time.Time) (bool, error)

	// SessionTimes devuelve el horario de la jornada. Sólo es válido
	// llamarla para fechas en las que IsTradingDay devolvió true.
	SessionTimes(d time.Time) (Session, error)
}

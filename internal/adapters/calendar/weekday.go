package calendar

import (
	"time"

	"github.com/alejandrodnm/backsim/internal/ports"
)

// Weekday es el calendario trivial: lunes a viernes, sin festivos, sesión
// de 9:30 a 16:00 en UTC. Útil para datos sintéticos y pruebas donde no
// importa el festivo real.
type Weekday struct{}

// NewWeekday crea el calendario.
func NewWeekday() *Weekday {
	return &Weekday{}
}

// IsTradingDay implementa ports.Calendar. Nunca devuelve error: este
// calendario no tiene rango.
func (c *Weekday) IsTradingDay(d time.Time) (bool, error) {
	return !isWeekend(d), nil
}

// SessionTimes implementa ports.Calendar.
func (c *Weekday) SessionTimes(d time.Time) (ports.Session, error) {
	y, m, day := d.Date()
	return ports.Session{
		Open:  time.Date(y, m, day, 9, 30, 0, 0, time.UTC),
		Close: time.Date(y, m, day, 16, 0, 0, 0, time.UTC),
	}, nil
}

package ports

import (
	"context"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// RunStore archiva los resultados de cada simulación.
type RunStore interface {
	// SaveRun persiste el registro completo de una simulación,
	// incluidos fills, posiciones finales y la curva de valor.
	SaveRun(ctx context.Context, rec *domain.RunRecord) error

	// GetRun recupera una simulación por su id.
	GetRun(ctx context.Context, id string) (*domain.RunRecord, error)

	// ListRuns devuelve las últimas simulaciones, la más reciente primero.
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}

package ports

import (
	"context"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// Notifier presenta el resultado de una simulación al usuario.
type Notifier interface {
	// Notify muestra el resumen del run: retorno, fills y posiciones.
	// En la implementación de consola, imprime tablas formateadas.
	Notify(ctx context.Context, rec *domain.RunRecord) error
}

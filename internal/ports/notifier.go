package ports

import (
	"context"

	"github.com/alejandrodnm/polyfusion/internal/domain"
)

// Notifier presenta el resultado de cada ciclo al usuario.
type Notifier interface {
	// Notify muestra señales, decisiones, pesos y arbitrajes del ciclo.
	// En la implementación de consola, imprime tablas formateadas.
	Notify(ctx context.Context, report domain.CycleReport) error
}

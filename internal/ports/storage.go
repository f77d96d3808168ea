package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/domain"
)

// DecisionStore persiste el diario de cada ciclo de decisión.
type DecisionStore interface {
	// SaveCycle persiste el resumen del ciclo, las decisiones del consejo,
	// las señales que cambiaron y las oportunidades de arbitraje.
	SaveCycle(ctx context.Context, report domain.CycleReport) error

	// GetDecisions devuelve las decisiones tomadas en el rango de tiempo dado.
	GetDecisions(ctx context.Context, from, to time.Time) ([]domain.CouncilDecision, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}

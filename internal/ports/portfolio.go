package ports

import (
	"context"

	"github.com/alejandrodnm/polyfusion/internal/domain"
)

// PortfolioProvider entrega el estado de riesgo de la cartera.
// El servicio de contabilidad real queda fuera del core.
type PortfolioProvider interface {
	Portfolio(ctx context.Context) (domain.PortfolioState, error)
}

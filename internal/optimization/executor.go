package optimization

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"adsoptimizer/internal/repository"
)

// executor carries the collaborators of one rule execution.
type executor struct {
	store        repository.MetricRepository
	client       MutationClient
	connectionID uint64
	logger       *zap.Logger
}

// skip records a per-entity remote failure. The entity is left untouched and
// the run continues.
func (x *executor) skip(op string, entityID uint64, err error) {
	if x.logger == nil {
		return
	}
	x.logger.Warn("remote mutation failed",
		zap.String("op", op),
		zap.Uint64("entity_id", entityID),
		zap.Error(err),
	)
}

func decimalPtr(v decimal.Decimal) *decimal.Decimal {
	return &v
}

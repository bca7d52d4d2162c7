package simulator

import (
	"go.uber.org/zap"

	"github.com/sushant-115/gojoftl/core/ftl"
)

// PrintObserver logs the validity index after every erase.
func PrintObserver(logger *zap.Logger) ftl.EraseObserver {
	return ftl.EraseObserverFunc(func(ev ftl.EraseEvent) {
		logger.Info("Block erased",
			zap.Int("victim", ev.Victim),
			zap.Int("relocated", ev.Relocated),
			zap.Bool("inPlace", ev.InPlace),
			zap.Int("minValid", ev.MinValid),
			zap.Ints("buckets", ev.Buckets),
			zap.Uint64("erases", ev.Stats.Erases),
		)
	})
}

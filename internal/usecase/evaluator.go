package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// Evaluation is the grant state of the runtime identifiers for one pass.
type Evaluation struct {
	Evaluated  []string // every runtime identifier queried, catalog order
	NotGranted []string // subset not granted, catalog order
}

// Evaluate queries the platform for every runtime identifier in defs.
// Special families are skipped; they have their own protocols.
// An identifier listed by more than one family is queried once.
func Evaluate(ctx context.Context, platform domain.Platform, defs []domain.Definition, logger *zap.Logger) Evaluation {
	var eval Evaluation
	seen := make(map[string]bool)

	for _, def := range defs {
		if def.Family.IsSpecial() {
			continue
		}
		for _, id := range def.IDs() {
			if seen[id] {
				continue
			}
			seen[id] = true
			eval.Evaluated = append(eval.Evaluated, id)

			status, err := platform.QueryGrantStatus(ctx, id)
			if err != nil {
				logger.Warn("grant query failed, treating as not granted",
					zap.String("permission", id),
					zap.Error(err))
				status = domain.NotGranted
			}
			if status != domain.Granted {
				eval.NotGranted = append(eval.NotGranted, id)
			}
		}
	}

	return eval
}

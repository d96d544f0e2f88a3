package optimization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const staleExecutionMessage = "abandoned: execution exceeded stale threshold"

// SweepReport counts what one RunScheduledRules call did with the due rules.
type SweepReport struct {
	Due       int   `json:"due"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	Skipped   int   `json:"skipped"`
	Abandoned int64 `json:"abandoned"`
}

// RunScheduledRules executes every due rule in priority order. Individual rule
// failures are logged and never stop the sweep; only failing to list the due
// rules is returned as an error. SweepTimeout is checked between rules: a rule
// that has started always runs to completion, and rules left when it expires
// stay due.
func (e *Engine) RunScheduledRules(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	if e == nil || e.Repo == nil {
		return report, nil
	}
	if e.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.SweepTimeout)
		defer cancel()
	}
	started := time.Now()
	now := e.now()

	if e.StaleAfter > 0 {
		n, err := e.Repo.FailStaleExecutions(ctx, now.Add(-e.StaleAfter), staleExecutionMessage)
		if err != nil && e.Logger != nil {
			e.Logger.Warn("fail stale executions", zap.Error(err))
		}
		report.Abandoned = n
	}

	rules, err := e.Repo.ListDueRules(ctx, now)
	if err != nil {
		return report, fmt.Errorf("list due rules: %w", err)
	}
	report.Due = len(rules)

	for i := range rules {
		rule := &rules[i]
		if ctx.Err() != nil {
			report.Skipped += len(rules) - i
			if e.Logger != nil {
				e.Logger.Warn("sweep deadline reached", zap.Int("remaining", len(rules)-i))
			}
			break
		}
		if !rule.Enabled {
			report.Skipped++
			continue
		}
		conn, err := e.Repo.GetConnectionByID(ctx, rule.ConnectionID)
		if err != nil {
			report.Failed++
			if e.Logger != nil {
				e.Logger.Error("sweep load connection failed",
					zap.String("rule_id", rule.ID),
					zap.Uint64("connection_id", rule.ConnectionID),
					zap.Error(err),
				)
			}
			continue
		}
		if conn == nil {
			report.Skipped++
			if e.Logger != nil {
				e.Logger.Warn("sweep skipped rule without connection",
					zap.String("rule_id", rule.ID),
					zap.Uint64("connection_id", rule.ConnectionID),
				)
			}
			continue
		}
		_, err = e.ExecuteRule(context.WithoutCancel(ctx), rule, conn)
		switch {
		case errors.Is(err, ErrRuleBusy):
			report.Skipped++
			if e.Logger != nil {
				e.Logger.Info("sweep skipped running rule", zap.String("rule_id", rule.ID))
			}
		case err != nil:
			report.Failed++
			if e.Logger != nil {
				e.Logger.Warn("sweep rule failed", zap.String("rule_id", rule.ID), zap.Error(err))
			}
		default:
			report.Succeeded++
		}
	}

	if e.Logger != nil {
		e.Logger.Info("optimization sweep done",
			zap.Int("due", report.Due),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", report.Failed),
			zap.Int("skipped", report.Skipped),
			zap.Int64("abandoned", report.Abandoned),
			zap.Duration("elapsed", time.Since(started)),
		)
	}
	return report, nil
}

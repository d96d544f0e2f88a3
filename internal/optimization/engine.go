package optimization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"adsoptimizer/internal/models"
	"adsoptimizer/internal/repository"
)

// MutationClient applies single-entity changes to the advertising platform.
// Every call either fully succeeds or returns an error.
type MutationClient interface {
	UpdateKeywordBid(ctx context.Context, platformKeywordID string, bid decimal.Decimal) error
	UpdateKeywordState(ctx context.Context, platformKeywordID string, state string) error
	UpdateCampaignBudget(ctx context.Context, platformCampaignID string, budget decimal.Decimal) error
	AddNegativeKeyword(ctx context.Context, campaignID, adGroupID, text, matchType string) error
}

type ClientFactory interface {
	ForConnection(conn *models.AmazonConnection) (MutationClient, error)
}

// ExecutionResult summarizes one finalized execution log.
type ExecutionResult struct {
	LogID            string                `json:"log_id"`
	Status           string                `json:"status"`
	EntitiesAffected int                   `json:"entities_affected"`
	ChangesMade      []models.ChangeRecord `json:"changes_made"`
	DurationMs       int64                 `json:"duration_ms"`
}

// Engine executes optimization rules and keeps their execution history.
type Engine struct {
	Repo    repository.Repository
	Clients ClientFactory
	Locker  RuleLocker
	Logger  *zap.Logger

	// Location is used for DAILY and WEEKLY next-run boundaries.
	Location *time.Location
	// StaleAfter is how long a RUNNING log blocks its rule. Zero means forever.
	StaleAfter time.Duration
	// SweepTimeout bounds one RunScheduledRules call.
	SweepTimeout time.Duration

	Now func() time.Time

	localOnce sync.Once
	local     *MemoryLocker
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Engine) locker() RuleLocker {
	if e.Locker != nil {
		return e.Locker
	}
	e.localOnce.Do(func() { e.local = NewMemoryLocker() })
	return e.local
}

// ExecuteRule runs rule against conn immediately, regardless of its schedule.
// The execution log is finalized before returning. On failure the result is
// still returned together with the error. ErrRuleBusy is returned without
// creating a log when another execution of the rule is in progress.
func (e *Engine) ExecuteRule(ctx context.Context, rule *models.OptimizationRule, conn *models.AmazonConnection) (*ExecutionResult, error) {
	if e == nil || e.Repo == nil {
		return nil, errors.New("optimization engine not configured")
	}
	if rule == nil || conn == nil {
		return nil, errors.New("rule and connection are required")
	}
	release, err := e.acquire(ctx, rule.ID)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.execute(ctx, rule, conn)
}

func (e *Engine) acquire(ctx context.Context, ruleID string) (func(), error) {
	unlock, ok, err := e.locker().TryLock(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("acquire rule lock: %w", err)
	}
	if !ok {
		return nil, ErrRuleBusy
	}
	var since time.Time
	if e.StaleAfter > 0 {
		since = e.now().Add(-e.StaleAfter)
	}
	running, err := e.Repo.HasRunningExecution(ctx, ruleID, since)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("check running execution: %w", err)
	}
	if running {
		unlock()
		return nil, ErrRuleBusy
	}
	return unlock, nil
}

func (e *Engine) execute(ctx context.Context, rule *models.OptimizationRule, conn *models.AmazonConnection) (*ExecutionResult, error) {
	startedAt := e.now()
	logID := uuid.NewString()
	if err := e.Repo.InsertExecutionLog(ctx, &models.ExecutionLog{
		ID:           logID,
		RuleID:       rule.ID,
		ConnectionID: conn.ID,
		Status:       models.ExecutionStatusRunning,
		StartedAt:    startedAt,
	}); err != nil {
		return nil, fmt.Errorf("create execution log: %w", err)
	}

	changes, runErr := e.dispatch(ctx, rule, conn)
	if changes == nil {
		changes = []models.ChangeRecord{}
	}
	completedAt := e.now()
	result := &ExecutionResult{
		LogID:            logID,
		Status:           models.ExecutionStatusSuccess,
		EntitiesAffected: len(changes),
		ChangesMade:      changes,
		DurationMs:       completedAt.Sub(startedAt).Milliseconds(),
	}
	if runErr != nil {
		result.Status = models.ExecutionStatusFailed
	}

	// The terminal state must land even when the caller has gone away.
	bookCtx := context.WithoutCancel(ctx)
	bookErr := e.finalize(bookCtx, rule, result, completedAt, runErr)

	fields := []zap.Field{
		zap.String("rule_id", rule.ID),
		zap.String("log_id", logID),
		zap.Uint64("connection_id", conn.ID),
		zap.String("rule_type", rule.RuleType),
		zap.Int("entities_affected", result.EntitiesAffected),
		zap.Int64("duration_ms", result.DurationMs),
	}
	if bookErr != nil && e.Logger != nil {
		e.Logger.Error("execution bookkeeping failed", append(fields, zap.Error(bookErr))...)
	}
	if runErr != nil {
		if e.Logger != nil {
			e.Logger.Warn("rule execution failed", append(fields, zap.Error(runErr))...)
		}
		if bookErr != nil {
			return result, errors.Join(runErr, bookErr)
		}
		return result, runErr
	}
	if e.Logger != nil {
		e.Logger.Info("rule executed", fields...)
	}
	return result, bookErr
}

func (e *Engine) dispatch(ctx context.Context, rule *models.OptimizationRule, conn *models.AmazonConnection) (changes []models.ChangeRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule executor panic: %v", r)
		}
	}()
	parsed, err := ParseRule(rule)
	if err != nil {
		return nil, err
	}
	if e.Clients == nil {
		return nil, errors.New("advertising client factory not configured")
	}
	client, err := e.Clients.ForConnection(conn)
	if err != nil {
		return nil, fmt.Errorf("build advertising client: %w", err)
	}
	x := &executor{
		store:        e.Repo,
		client:       client,
		connectionID: conn.ID,
		logger:       e.Logger,
	}
	if x.logger != nil {
		x.logger = x.logger.With(zap.String("rule_id", rule.ID), zap.String("rule_type", parsed.Type()))
	}
	return parsed.apply(ctx, x)
}

func (e *Engine) finalize(ctx context.Context, rule *models.OptimizationRule, result *ExecutionResult, completedAt time.Time, runErr error) error {
	var errs []error
	logResult := repository.ExecutionLogResult{
		Status:           result.Status,
		CompletedAt:      completedAt,
		DurationMs:       result.DurationMs,
		EntitiesAffected: result.EntitiesAffected,
	}
	changes := result.ChangesMade
	if changes == nil {
		changes = []models.ChangeRecord{}
	}
	raw, err := json.Marshal(changes)
	if err != nil {
		errs = append(errs, fmt.Errorf("encode changes: %w", err))
	} else {
		logResult.ChangesMade = raw
	}
	if runErr != nil {
		msg := runErr.Error()
		logResult.ErrorMessage = &msg
	}
	if err := e.Repo.FinalizeExecutionLog(ctx, result.LogID, logResult); err != nil {
		errs = append(errs, fmt.Errorf("finalize execution log: %w", err))
	}

	if runErr != nil {
		if err := e.Repo.RecordRuleFailure(ctx, rule.ID, completedAt); err != nil {
			errs = append(errs, fmt.Errorf("record rule failure: %w", err))
		}
		return errors.Join(errs...)
	}
	next := NextRun(rule.Schedule, rule.CustomCron, completedAt, e.Location)
	if err := e.Repo.RecordRuleSuccess(ctx, rule.ID, completedAt, next); err != nil {
		errs = append(errs, fmt.Errorf("record rule success: %w", err))
	}
	return errors.Join(errs...)
}

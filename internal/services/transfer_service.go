package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/log"
)

const defaultConcurrency = 4

// TransferStore is the slice of storage the transfer batch needs.
type TransferStore interface {
	ListSchedules(ctx context.Context, userID string) ([]core.Schedule, error)
	ListBins(ctx context.Context, userID string) ([]core.Bin, error)
	SetBinAmount(ctx context.Context, userID, binID string, amount core.Money) error
	ListScheduleOwners(ctx context.Context) ([]string, error)
}

// TransferPublisher announces persisted transfers. *amqp.Client satisfies it.
type TransferPublisher interface {
	PublishTransfer(ctx context.Context, event *amqp.TransferEvent) error
}

// PersistFailure records a staged bin balance that could not be written.
type PersistFailure struct {
	BinID string
	Err   error
}

// TransferRun is the outcome of one user's batch.
type TransferRun struct {
	UserID          string
	Date            core.Date
	Result          TransferResult
	PersistFailures []PersistFailure
}

// Persisted returns the successful outcomes whose bin balance was written.
func (r *TransferRun) Persisted() []TransferOutcome {
	failed := make(map[string]struct{}, len(r.PersistFailures))
	for _, f := range r.PersistFailures {
		failed[f.BinID] = struct{}{}
	}
	var out []TransferOutcome
	for _, o := range r.Result.Report {
		if !o.Succeeded() {
			continue
		}
		if _, bad := failed[o.BinID]; bad {
			continue
		}
		out = append(out, o)
	}
	return out
}

// RunSummary aggregates a batch over every user with schedules.
type RunSummary struct {
	Users           int
	FailedUsers     int
	Transfers       int
	Failures        int
	PersistFailures int
}

// TransferService loads schedules and bins, runs ProcessTransfers and
// writes the staged balances back.
type TransferService struct {
	store       TransferStore
	publisher   TransferPublisher
	concurrency int
}

// NewTransferService creates a transfer service. publisher may be nil, in
// which case no events are published.
func NewTransferService(store TransferStore, publisher TransferPublisher, concurrency int) *TransferService {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &TransferService{
		store:       store,
		publisher:   publisher,
		concurrency: concurrency,
	}
}

// ProcessUser runs the batch for a single user. A failure to read schedules
// or bins aborts the run before anything is written. Each updated bin is
// written on its own, so one failed write is reported and the others still
// land.
func (s *TransferService) ProcessUser(ctx context.Context, userID string, today core.Date) (*TransferRun, error) {
	if s.store == nil {
		return nil, errors.New("transfer service not properly initialized")
	}

	schedules, err := s.store.ListSchedules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	binList, err := s.store.ListBins(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bins: %w", err)
	}

	bins := make(map[string]core.Bin, len(binList))
	for _, b := range binList {
		bins[b.ID] = b
	}

	run := &TransferRun{
		UserID: userID,
		Date:   today,
		Result: ProcessTransfers(schedules, bins, today),
	}

	for binID, bin := range run.Result.UpdatedBins {
		if err := s.store.SetBinAmount(ctx, userID, binID, bin.CurrentAmount); err != nil {
			slog.ErrorContext(ctx, "Failed to persist bin balance",
				log.FieldComponent, log.ComponentTransfer,
				log.FieldUserID, userID,
				log.FieldBinID, binID,
				log.FieldError, err)
			run.PersistFailures = append(run.PersistFailures, PersistFailure{BinID: binID, Err: err})
		}
	}

	for _, o := range run.Result.Failures() {
		slog.WarnContext(ctx, "Scheduled transfer skipped",
			log.FieldComponent, log.ComponentTransfer,
			log.FieldUserID, userID,
			log.FieldScheduleID, o.ScheduleID,
			log.FieldBinID, o.BinID,
			log.FieldError, o.Err)
	}

	sl := log.NewStructuredLogger(log.FromContext(ctx).WithComponent(log.ComponentTransfer))
	for _, o := range run.Persisted() {
		sl.LogTransfer(ctx, userID, o.ScheduleID, o.BinID, o.TransferAmount.Cents, o.NewTotal.Cents)
		s.publish(ctx, userID, today, o)
	}

	return run, nil
}

func (s *TransferService) publish(ctx context.Context, userID string, today core.Date, o TransferOutcome) {
	if s.publisher == nil {
		return
	}
	event := amqp.NewTransferEvent(amqp.TransferEvent{
		UserID:        userID,
		ScheduleID:    o.ScheduleID,
		BinID:         o.BinID,
		BinName:       o.BinName,
		AmountCents:   o.TransferAmount.Cents,
		NewTotalCents: o.NewTotal.Cents,
		Frequency:     string(o.Frequency),
		Date:          today.String(),
	})
	if err := s.publisher.PublishTransfer(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish transfer event",
			log.FieldComponent, log.ComponentTransfer,
			log.FieldMessageID, event.MessageID,
			log.FieldUserID, userID,
			log.FieldError, err)
	}
}

// ProcessAll runs the batch for every user that owns a schedule, with at
// most concurrency users in flight. A failing user is logged and counted.
func (s *TransferService) ProcessAll(ctx context.Context, today core.Date) (RunSummary, error) {
	users, err := s.store.ListScheduleOwners(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("list schedule owners: %w", err)
	}

	slog.InfoContext(ctx, "Processing scheduled transfers",
		log.FieldComponent, log.ComponentTransfer,
		"users", len(users),
		log.FieldDate, today.String())

	var (
		mu      sync.Mutex
		summary = RunSummary{Users: len(users)}
		g       errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			run, err := s.ProcessUser(ctx, userID, today)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.ErrorContext(ctx, "Failed to process user transfers",
					log.FieldComponent, log.ComponentTransfer,
					log.FieldUserID, userID,
					log.FieldError, err)
				summary.FailedUsers++
				return nil
			}
			summary.Transfers += len(run.Persisted())
			summary.Failures += len(run.Result.Failures())
			summary.PersistFailures += len(run.PersistFailures)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	slog.InfoContext(ctx, "Scheduled transfers completed",
		log.FieldComponent, log.ComponentTransfer,
		"users", summary.Users,
		"failed_users", summary.FailedUsers,
		"transfers", summary.Transfers,
		"failures", summary.Failures,
		"persist_failures", summary.PersistFailures)

	return summary, nil
}

package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	invoicingapp "github.com/optica/backend/internal/application/invoicing"
	"go.uber.org/zap"
)

// ReceiptRepairer regenerates receipts of invoices that have none
type ReceiptRepairer interface {
	RepairMissingReceipts(ctx context.Context, afterID int64, limit int) (*invoicingapp.RepairReport, error)
}

// ReceiptRepairExecutor runs JobKindReceiptRepair jobs. Each run repairs the
// next batch after a cursor, so invoices that keep failing cannot hold back
// newer ones. The cursor wraps to the start once a sweep reaches the end.
type ReceiptRepairExecutor struct {
	repairer  ReceiptRepairer
	batchSize int
	cursor    atomic.Int64
	logger    *zap.Logger
}

// NewReceiptRepairExecutor creates an executor repairing at most batchSize
// invoices per run; batchSize <= 0 repairs all of them.
func NewReceiptRepairExecutor(repairer ReceiptRepairer, batchSize int, logger *zap.Logger) *ReceiptRepairExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptRepairExecutor{
		repairer:  repairer,
		batchSize: batchSize,
		logger:    logger.Named("receipt_repair"),
	}
}

// Execute repairs one batch. Remaining failures fail the job so the
// scheduler retries it later; the retry continues with the next batch.
func (e *ReceiptRepairExecutor) Execute(ctx context.Context, job *Job) error {
	after := e.cursor.Load()
	report, err := e.repairer.RepairMissingReceipts(ctx, after, e.batchSize)
	if err != nil {
		return err
	}
	if report.Exhausted {
		e.cursor.Store(0)
	} else {
		e.cursor.Store(report.LastID)
	}

	if report.Scanned > 0 {
		e.logger.Info("Receipt repair run finished",
			zap.String("job_id", job.ID.String()),
			zap.Int64("after_id", after),
			zap.Int("scanned", report.Scanned),
			zap.Int("regenerated", report.Regenerated),
			zap.Int("failed", len(report.Failed)),
		)
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%w: %d of %d invoices failed", ErrRepairIncomplete, len(report.Failed), report.Scanned)
	}
	return nil
}

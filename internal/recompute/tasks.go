package recompute

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/noah-isme/pricing-engine/internal/lock"
	"github.com/noah-isme/pricing-engine/internal/pricing"
)

// TypeOrderRecompute is the asynq task type for order recomputes.
const TypeOrderRecompute = "order:recompute"

// TaskPayload is the JSON body of a recompute task.
type TaskPayload struct {
	OrderID uuid.UUID         `json:"order_id"`
	Edit    *pricing.LineEdit `json:"edit,omitempty"`
}

// NewTask builds a recompute task for one order.
func NewTask(orderID uuid.UUID, edit *pricing.LineEdit) (*asynq.Task, error) {
	payload, err := json.Marshal(TaskPayload{OrderID: orderID, Edit: edit})
	if err != nil {
		return nil, fmt.Errorf("marshal recompute payload: %w", err)
	}
	return asynq.NewTask(TypeOrderRecompute, payload, asynq.MaxRetry(5), asynq.Timeout(time.Minute)), nil
}

// Enqueuer submits recompute tasks.
type Enqueuer struct {
	Client *asynq.Client
}

// Enqueue schedules a recompute for the order.
func (e Enqueuer) Enqueue(ctx context.Context, orderID uuid.UUID, edit *pricing.LineEdit) error {
	if e.Client == nil {
		return fmt.Errorf("recompute: asynq client not configured")
	}
	task, err := NewTask(orderID, edit)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue recompute for order %s: %w", orderID, err)
	}
	return nil
}

// TaskHandler consumes recompute tasks, serialising concurrent
// recomputes of the same order behind a Redis lock.
type TaskHandler struct {
	Svc     *Service
	Locker  lock.Locker
	LockTTL time.Duration
}

// ProcessTask implements asynq.Handler.
func (h TaskHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode recompute payload: %w", err)
	}
	if h.Svc == nil {
		return ErrNilStore
	}

	ttl := h.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	run := func(ctx context.Context) error {
		_, err := h.Svc.Recompute(ctx, payload.OrderID, payload.Edit)
		return err
	}
	if h.Locker.R == nil {
		return run(ctx)
	}
	return h.Locker.WithLock(ctx, "recompute:"+payload.OrderID.String(), ttl, run)
}

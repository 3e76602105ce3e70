// Package window slices a large record batch into bounded-size,
// non-overlapping windows and attaches a uniform task to each, producing the
// control messages that seed one execution-context tree per window.
package window

import (
	"context"
	"fmt"

	"github.com/vk/taskloom/internal/batch"
	"github.com/vk/taskloom/internal/ctxlog"
	"github.com/vk/taskloom/internal/message"
	"github.com/vk/taskloom/internal/task"
)

// Producer windows incoming batches. Every window of one Produce call
// receives the same attached task, if any.
type Producer struct {
	// Size is the maximum rows per window; the final window may be shorter.
	Size int
	// EnsureSliceableIndex controls handling of a batch whose index is not
	// unique and monotonically increasing: when true the index is repaired
	// (the original is preserved under a renamed column), when false only a
	// performance warning is emitted.
	EnsureSliceableIndex bool
	// Task, when non-zero, is attached to every produced message.
	Task task.Task
}

// Produce slices b into windows [start, start+Size) over the original row
// indexing and returns the ordered window messages.
func (p *Producer) Produce(ctx context.Context, b *batch.Batch) ([]*message.Message, error) {
	logger := ctxlog.FromContext(ctx)

	if p.Size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", p.Size)
	}

	if !b.HasSliceableIndex() {
		if p.EnsureSliceableIndex {
			renamed := b.EnsureSliceableIndex()
			logger.Warn("incoming batch does not have a unique and monotonic index; updating index to be unique",
				"retained_column", renamed)
		} else {
			logger.Warn("detected a non-sliceable index on an incoming batch; " +
				"performance when taking slices may be degraded, consider enabling ensure-sliceable-index")
		}
	}

	total := b.NumRows()
	msgs := make([]*message.Message, 0, (total+p.Size-1)/p.Size)
	for start := 0; start < total; start += p.Size {
		stop := start + p.Size
		if stop > total {
			stop = total
		}
		win, err := b.Slice(start, stop)
		if err != nil {
			return nil, fmt.Errorf("windowing rows [%d, %d): %w", start, stop, err)
		}
		msg := message.New(win)
		if !p.Task.IsZero() {
			msg.AddTask(p.Task)
		}
		msgs = append(msgs, msg)
		logger.Debug("produced window", "start", start, "stop", stop, "rows", stop-start)
	}
	return msgs, nil
}

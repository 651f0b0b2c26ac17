package metrics

import (
	"context"

	"github.com/BaSui01/imageflow/session"
)

// EditRecorder 将编辑结果转化为指标，并透传给下游记录器（通常是历史落库）。
// 下游为 nil 时仅记录指标。
type EditRecorder struct {
	collector *Collector
	next      session.Recorder
}

var _ session.Recorder = (*EditRecorder)(nil)

// NewEditRecorder 创建指标记录适配器
func NewEditRecorder(collector *Collector, next session.Recorder) *EditRecorder {
	return &EditRecorder{
		collector: collector,
		next:      next,
	}
}

// RecordEdit 记录编辑指标，随后调用下游记录器并统计落库结果。
func (r *EditRecorder) RecordEdit(ctx context.Context, outcome session.Outcome) error {
	r.collector.RecordEditRequest(outcome.Provider, outcome.Model, outcome.Status, outcome.Duration)
	if outcome.SourceBytes > 0 {
		r.collector.RecordEditPayload("source", outcome.SourceBytes)
	}
	if outcome.ResultBytes > 0 {
		r.collector.RecordEditPayload("result", outcome.ResultBytes)
	}

	if r.next == nil {
		return nil
	}

	err := r.next.RecordEdit(ctx, outcome)
	if err != nil {
		r.collector.RecordHistoryWrite("error")
	} else {
		r.collector.RecordHistoryWrite("ok")
	}
	return err
}

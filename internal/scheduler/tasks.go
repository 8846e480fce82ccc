package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskSequenceDispatch = "sequence:dispatch"

// SequenceDispatchPayload optionally pins the run's reference time. Cron
// tasks leave it empty so the worker uses its own clock.
type SequenceDispatchPayload struct {
	ReferenceTime *time.Time `json:"referenceTime,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

func NewSequenceDispatchTask(payload SequenceDispatchPayload, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSequenceDispatch, data, opts...), nil
}

func ParseSequenceDispatchPayload(task *asynq.Task) (SequenceDispatchPayload, error) {
	var payload SequenceDispatchPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SequenceDispatchPayload{}, err
	}
	return payload, nil
}

// dispatchTaskOptions keep a run single-shot: a failed or overlapping run is
// picked up by the next tick instead of a queue retry.
func dispatchTaskOptions(queue string, timeout time.Duration) []asynq.Option {
	opts := []asynq.Option{asynq.Queue(queue), asynq.MaxRetry(0)}
	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}
	return opts
}

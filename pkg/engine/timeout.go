package engine

import (
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds one evaluation unless the engine sets its own.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when an evaluation outlives the engine's limit.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned for the result of an evaluation that a
	// newer one on the same engine replaced.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// evalResult passes evaluation results through channels.
type evalResult struct {
	value  Value
	errors []EvalError
	err    error
}

// limit returns the evaluation time limit of e.
func (e *Engine) limit() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

// current reports whether gen is still the latest evaluation.
func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

// wait receives the result of evaluation gen from ch. A goroutine that
// times out keeps running; its late result is dropped because its
// generation is no longer current.
func (e *Engine) wait(ch <-chan evalResult, gen uint64) (Value, []EvalError, error) {
	limit := e.limit()
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !e.current(gen) {
			return nil, nil, ErrSuperseded
		}
		return res.value, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, limit)
	}
}

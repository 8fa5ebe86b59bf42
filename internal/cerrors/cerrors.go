// Package cerrors defines the error kinds raised across the simulation
// engine, distinguishing the fatal-at-load, fatal-at-run, and non-fatal
// conditions the engine and its collaborators can encounter.
package cerrors

import "fmt"

// ConfigError reports a problem found while loading or validating a
// program configuration. It is fatal: the engine never starts.
type ConfigError struct {
	Item    string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Item == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error: %s: %s", e.Item, e.Message)
}

// NewConfigError builds a ConfigError, optionally naming the offending
// configuration item.
func NewConfigError(item, format string, args ...any) *ConfigError {
	return &ConfigError{Item: item, Message: fmt.Sprintf(format, args...)}
}

// ExpressionError reports a problem evaluating an expression node. It is
// fatal: the run stops, since a broken expression means the program's
// semantics can no longer be trusted.
type ExpressionError struct {
	Node    string
	Message string
}

func (e *ExpressionError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("expression error: %s", e.Message)
	}
	return fmt.Sprintf("expression error in %q: %s", e.Node, e.Message)
}

// NewExpressionError builds an ExpressionError naming the node whose
// expression failed to evaluate.
func NewExpressionError(node, format string, args ...any) *ExpressionError {
	return &ExpressionError{Node: node, Message: fmt.Sprintf(format, args...)}
}

// SinkError reports a collaborator (history sink or live publisher)
// failing to accept a snapshot. It is non-fatal: the cycle continues.
type SinkError struct {
	Sink    string
	Message string
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink error (%s): %s", e.Sink, e.Message)
}

// NewSinkError builds a SinkError naming the collaborator that failed.
func NewSinkError(sink string, cause error) *SinkError {
	return &SinkError{Sink: sink, Message: cause.Error()}
}

// CancelRequested is returned by a run loop after it has observed
// cancellation and returned cleanly following the current cycle. It is
// not a failure.
type CancelRequested struct {
	CycleCount uint64
}

func (e *CancelRequested) Error() string {
	return fmt.Sprintf("run canceled after cycle %d", e.CycleCount)
}

package kernel

import (
	"errors"
	"fmt"
)

// Sentinel errors covering this kernel's error taxonomy. Each public
// primitive's doc comment states which of these it can return.
var (
	// ErrOutOfMemory is returned by CreateTask in place of a handle when
	// the requested AllocOrigin is not supported by the Config: a static
	// task without SupportStaticAllocation, or a dynamic one without
	// SupportDynamicAllocation. The kernel never panics on an allocation
	// shortfall.
	ErrOutOfMemory = errors.New("kernel: out of memory")

	// ErrInvalidArgument is returned for statically-detectable misuse —
	// e.g. waiting on an event-group mask that overlaps the control
	// bits, or a zero wait mask. In the C original these are debug-mode
	// assertions with undefined release behavior; this port always
	// checks and always returns an error instead.
	ErrInvalidArgument = errors.New("kernel: invalid argument")

	// ErrSchedulerSuspended describes a blocking call with a non-zero
	// timeout made while the scheduler is suspended. No primitive in
	// this module returns it: blocking calls do not check the
	// scheduler's suspend count.
	ErrSchedulerSuspended = errors.New("kernel: blocking call with non-zero timeout while scheduler suspended")

	// ErrNotRunning describes a call that needs a started scheduler. No
	// API in this module returns it.
	ErrNotRunning = errors.New("kernel: scheduler is not running")

	// ErrAlreadyRunning is returned by Scheduler.StartScheduler if called
	// while the scheduler is already running.
	ErrAlreadyRunning = errors.New("kernel: scheduler is already running")

	// ErrUnsupportedConfig is returned by NewScheduler when an option
	// requests a feature this core does not implement (e.g. tickless
	// idle, which is out of scope).
	ErrUnsupportedConfig = errors.New("kernel: unsupported configuration option")
)

// TimeoutError is returned by blocking primitives that time out without
// their condition becoming true. It is a distinct type (rather than a
// sentinel) only so callers can recover whatever partial state the
// primitive observed at the moment of timeout, via Snapshot.
type TimeoutError struct {
	// Message describes which primitive timed out.
	Message string
	// Snapshot is primitive-specific: for event groups, the bits
	// observed at timeout.
	Snapshot any
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "kernel: operation timed out"
	}
	return e.Message
}

// QueueFullError is returned when a bounded command queue (the software
// timer daemon's command queue) rejects a send because it is full.
type QueueFullError struct {
	Cause error
}

func (e *QueueFullError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("kernel: queue full: %v", e.Cause)
	}
	return "kernel: queue full"
}

func (e *QueueFullError) Unwrap() error { return e.Cause }

// ErrQueueEmpty describes a receive on an empty queue with no timeout
// available to wait. No API in this module returns it.
var ErrQueueEmpty = errors.New("kernel: queue empty")

// WrapError wraps err with a message, preserving it for errors.Is/As.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}

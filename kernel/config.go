package kernel

import "github.com/joeycumines/go-rtoskernel/port"

// Config gathers every configuration option this kernel recognizes.
// NewScheduler builds one from NewConfig's defaults and the With*
// options below; Scheduler.Config returns the result. Fields not covered
// by an Option keep the defaults set in NewConfig, which mirror a
// typical FreeRTOSConfig.h.
type Config struct {
	// MaxPriorities is the number of ready lists; priorities run
	// [0, MaxPriorities).
	MaxPriorities int

	// TickRateHz is used only by MsToTicks.
	TickRateHz int

	// MinStackSize is the stack-depth hint for the idle task, and for
	// any task whose TaskParams.StackDepth is zero or negative; larger
	// or smaller positive depths are passed through unchanged. It has no
	// effect on actual memory use under the goroutine-backed port, but
	// is threaded through to Port.InitStack for fidelity.
	MinStackSize int

	// MaxTaskNameLen bounds Task.Name; longer names are truncated.
	MaxTaskNameLen int

	// UsePreemption, if false, means only explicit yields and blocking
	// calls cause a context switch — the tick ISR never marks a yield
	// required merely because a higher-priority task became ready.
	UsePreemption bool

	// UseTimeSlicing enables round-robin among equal-priority ready
	// tasks on every tick.
	UseTimeSlicing bool

	// IdleShouldYield, if true, makes the idle task yield immediately
	// whenever another idle-priority task is ready.
	IdleShouldYield bool

	// UseTimers controls whether swtimer.New creates the software timer
	// daemon task on the Scheduler it is given; NewScheduler itself does
	// not start a daemon.
	UseTimers bool

	// TimerTaskPriority, TimerQueueLength, TimerStackDepth configure the
	// timer daemon, when UseTimers is true.
	TimerTaskPriority int
	TimerQueueLength  int
	TimerStackDepth   int

	// SupportStaticAllocation and SupportDynamicAllocation gate which
	// AllocOrigin values CreateTask will accept; at least one must be
	// true.
	SupportStaticAllocation  bool
	SupportDynamicAllocation bool

	// NotifyArrayEntries sizes Task.Notify / Task.NotifyState.
	NotifyArrayEntries int

	// UseEventGroups, UseMutexes, UseCountingSemaphores, UseQueueSets
	// are accepted for configuration-surface fidelity with a typical
	// FreeRTOSConfig.h; none of them affects anything in this core (the
	// eventgroup package is usable regardless of UseEventGroups).
	UseEventGroups        bool
	UseMutexes            bool
	UseCountingSemaphores bool
	UseQueueSets          bool

	// CheckForStackOverflow selects a checking level: 0 disabled, 1 or
	// 2 enabled. Under the goroutine-backed port there is no real stack
	// to paint/probe, so this is validated but otherwise inert; it
	// exists so a ported config header's value is not silently dropped.
	CheckForStackOverflow int

	// UseTicklessIdle is always false: tickless idle is out of scope for
	// this core, so NewScheduler returns ErrUnsupportedConfig if given
	// WithTicklessIdle(true).
	UseTicklessIdle bool

	// IdleEntry is the idle task's body, run at priority 0. If nil,
	// NewScheduler's caller is responsible for creating a priority-0
	// task themselves before calling Scheduler.StartScheduler; if set,
	// StartScheduler creates it automatically the first time it runs,
	// matching FreeRTOS's own vTaskStartScheduler behavior.
	IdleEntry port.EntryFunc
}

// NewConfig returns a Config with FreeRTOS-typical defaults: 5 priority
// levels, a 1kHz tick, preemption and time-slicing on, dynamic
// allocation only, one notification slot, no timers.
func NewConfig() *Config {
	return &Config{
		MaxPriorities:            5,
		TickRateHz:               1000,
		MinStackSize:             128,
		MaxTaskNameLen:           16,
		UsePreemption:            true,
		UseTimeSlicing:           true,
		IdleShouldYield:          true,
		UseTimers:                false,
		TimerTaskPriority:        2,
		TimerQueueLength:         10,
		TimerStackDepth:          256,
		SupportDynamicAllocation: true,
		NotifyArrayEntries:       1,
		UseEventGroups:           true,
	}
}

// MsToTicks converts milliseconds to ticks using TickRateHz, truncating.
func (c *Config) MsToTicks(ms int) int {
	return ms * c.TickRateHz / 1000
}

// Option configures a Config in place: a function type with a
// constructor per field, applied in order by resolveConfig.
type Option func(*Config) error

// WithMaxPriorities sets the number of ready lists.
func WithMaxPriorities(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return WrapError("WithMaxPriorities", ErrInvalidArgument)
		}
		c.MaxPriorities = n
		return nil
	}
}

// WithTickRateHz sets the tick frequency used by MsToTicks.
func WithTickRateHz(hz int) Option {
	return func(c *Config) error {
		if hz < 1 {
			return WrapError("WithTickRateHz", ErrInvalidArgument)
		}
		c.TickRateHz = hz
		return nil
	}
}

// WithPreemption toggles preemptive scheduling.
func WithPreemption(enabled bool) Option {
	return func(c *Config) error {
		c.UsePreemption = enabled
		return nil
	}
}

// WithTimeSlicing toggles round-robin time-slicing among equal-priority
// ready tasks.
func WithTimeSlicing(enabled bool) Option {
	return func(c *Config) error {
		c.UseTimeSlicing = enabled
		return nil
	}
}

// WithIdleShouldYield toggles whether the idle task yields immediately
// when another idle-priority task is ready.
func WithIdleShouldYield(enabled bool) Option {
	return func(c *Config) error {
		c.IdleShouldYield = enabled
		return nil
	}
}

// WithTimers enables the software-timer daemon and its parameters.
func WithTimers(priority, queueLength, stackDepth int) Option {
	return func(c *Config) error {
		if queueLength < 1 {
			return WrapError("WithTimers", ErrInvalidArgument)
		}
		c.UseTimers = true
		c.TimerTaskPriority = priority
		c.TimerQueueLength = queueLength
		c.TimerStackDepth = stackDepth
		return nil
	}
}

// WithAllocation sets which allocation origins CreateTask will accept.
// At least one of static/dynamic must be true.
func WithAllocation(static, dynamic bool) Option {
	return func(c *Config) error {
		if !static && !dynamic {
			return WrapError("WithAllocation", ErrInvalidArgument)
		}
		c.SupportStaticAllocation = static
		c.SupportDynamicAllocation = dynamic
		return nil
	}
}

// WithNotifyArrayEntries sizes each task's notification slot array.
func WithNotifyArrayEntries(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return WrapError("WithNotifyArrayEntries", ErrInvalidArgument)
		}
		c.NotifyArrayEntries = n
		return nil
	}
}

// WithMaxTaskNameLen bounds task names.
func WithMaxTaskNameLen(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return WrapError("WithMaxTaskNameLen", ErrInvalidArgument)
		}
		c.MaxTaskNameLen = n
		return nil
	}
}

// WithStackOverflowChecking sets the checking level (0, 1, or 2).
func WithStackOverflowChecking(level int) Option {
	return func(c *Config) error {
		if level < 0 || level > 2 {
			return WrapError("WithStackOverflowChecking", ErrInvalidArgument)
		}
		c.CheckForStackOverflow = level
		return nil
	}
}

// WithIdleEntry sets the idle task's body, automatically created at
// priority 0 by Scheduler.StartScheduler.
func WithIdleEntry(entry port.EntryFunc) Option {
	return func(c *Config) error {
		if entry == nil {
			return WrapError("WithIdleEntry", ErrInvalidArgument)
		}
		c.IdleEntry = entry
		return nil
	}
}

// WithTicklessIdle always fails: tickless idle is out of scope for this
// core. The option exists so a caller migrating a config from elsewhere
// gets a clear error instead of silent loss of the setting.
func WithTicklessIdle(enabled bool) Option {
	return func(c *Config) error {
		if enabled {
			return WrapError("WithTicklessIdle", ErrUnsupportedConfig)
		}
		return nil
	}
}

// resolveConfig applies options over NewConfig's defaults.
func resolveConfig(opts []Option) (*Config, error) {
	cfg := NewConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if !cfg.SupportStaticAllocation && !cfg.SupportDynamicAllocation {
		return nil, WrapError("resolveConfig", ErrInvalidArgument)
	}
	return cfg, nil
}

package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// CheckFunc performs one check. It returns nil when the component is
// usable, a Warning when it is usable with a caveat, or an error describing
// the problem.
type CheckFunc func(ctx context.Context) error

// Check statuses.
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusFailed  = "failed"
)

// Overall statuses of a Report.
const (
	ReportReady    = "ready"
	ReportDegraded = "degraded"
	ReportFailed   = "failed"
)

// CheckResult represents the result of a single check.
type CheckResult struct {
	// Name identifies the check, e.g. "watched:/srv/data"
	Name string `json:"name"`

	// Status is "ok", "warning" or "failed"
	Status string `json:"status"`

	// Message provides additional context for warnings and failures
	Message string `json:"message,omitempty"`

	// Duration is how long the check took
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// Report is the outcome of running every registered check.
type Report struct {
	// Status is "ready", "degraded" (warnings only) or "failed"
	Status string `json:"status"`

	// Checks are the individual results, sorted by name
	Checks []CheckResult `json:"checks"`

	// Timestamp is when the checks were run
	Timestamp time.Time `json:"timestamp"`
}

// Ready reports whether no check failed.
func (r Report) Ready() bool {
	return r.Status != ReportFailed
}

// warning marks a check error as non-fatal.
type warning struct {
	err error
}

func (w *warning) Error() string { return w.err.Error() }
func (w *warning) Unwrap() error { return w.err }

// Warning wraps err so the check is reported as a warning instead of a
// failure.
func Warning(err error) error {
	if err == nil {
		return nil
	}
	return &warning{err: err}
}

// Warningf is Warning(fmt.Errorf(format, args...)).
func Warningf(format string, args ...any) error {
	return Warning(fmt.Errorf(format, args...))
}

// IsWarning reports whether err was produced by Warning.
func IsWarning(err error) bool {
	var w *warning
	return errors.As(err, &w)
}

// Checker runs named checks concurrently, each under its own timeout.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc

	// Timeout for individual checks
	checkTimeout time.Duration
}

var (
	// ErrCheckTimeout is reported when a check does not finish in time
	ErrCheckTimeout = errors.New("check timeout")
)

// New creates a new checker with the specified check timeout.
// If timeout is 0, defaults to 5 seconds per check.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}

	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
	}
}

// RegisterCheck registers a check under name.
// If a check with the same name already exists, it will be replaced.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = check
}

// ListChecks returns the names of all registered checks, sorted.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Run performs every registered check and aggregates the results.
// With no checks registered the report is ready.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	// Run all checks concurrently
	results := make([]CheckResult, 0, len(checks))
	var resultMu sync.Mutex
	var wg sync.WaitGroup

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()

			result := c.runCheck(ctx, check)
			result.Name = name

			resultMu.Lock()
			results = append(results, result)
			resultMu.Unlock()
		}(name, check)
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	// Determine overall status
	status := ReportReady
	for _, result := range results {
		switch result.Status {
		case StatusFailed:
			status = ReportFailed
		case StatusWarning:
			if status == ReportReady {
				status = ReportDegraded
			}
		}
	}

	return Report{
		Status:    status,
		Checks:    results,
		Timestamp: time.Now(),
	}
}

// runCheck executes a single check with timeout.
func (c *Checker) runCheck(ctx context.Context, check CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()

	// Run check in goroutine to support timeout
	errChan := make(chan error, 1)
	go func() {
		errChan <- check(checkCtx)
	}()

	select {
	case err := <-errChan:
		duration := time.Since(start)
		switch {
		case err == nil:
			return CheckResult{Status: StatusOK, Duration: duration}
		case IsWarning(err):
			return CheckResult{Status: StatusWarning, Message: err.Error(), Duration: duration}
		default:
			return CheckResult{Status: StatusFailed, Message: err.Error(), Duration: duration}
		}

	case <-checkCtx.Done():
		return CheckResult{
			Status:   StatusFailed,
			Message:  ErrCheckTimeout.Error(),
			Duration: time.Since(start),
		}
	}
}

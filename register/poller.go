package register

import (
	"context"
	"time"

	"addinsso/azcli"
)

const (
	// One initial check plus 50 retries.
	defaultReadinessAttempts = 51
	defaultReadinessDelay    = time.Second
)

// Poller checks whether a freshly created application is visible yet.
// Directory propagation can lag the create call, so command errors count as
// "not ready" rather than failures.
type Poller struct {
	executor azcli.Executor
	attempts int
	delay    time.Duration
}

func NewPoller(executor azcli.Executor) *Poller {
	return &Poller{
		executor: executor,
		attempts: defaultReadinessAttempts,
		delay:    defaultReadinessDelay,
	}
}

// WaitUntilReady runs commandLine until it produces a result or the attempt
// budget is spent. Exhaustion is not an error; the caller decides what to
// skip. Only context cancellation surfaces as an error.
func (p *Poller) WaitUntilReady(ctx context.Context, commandLine string) (bool, error) {
	ticker := time.NewTicker(p.delay)
	defer ticker.Stop()

	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-ticker.C:
			}
		}

		result, err := p.executor.Run(ctx, commandLine, azcli.Options{ParseJSON: true, TolerateExitError: true})
		if err != nil {
			continue
		}
		if !result.Empty() {
			return true, nil
		}
	}
	return false, nil
}

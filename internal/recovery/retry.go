package recovery

import "time"

// NextAttemptAt computes when the attempt after attemptNumber should
// run, or nil when the schedule is exhausted (the caller then expires
// the session). Delays are measured from base: the failure time on
// first scheduling, the sweep time afterwards. Late sweeps therefore
// push subsequent attempts out — "wait N minutes after the last
// attempt", not "N minutes after the original failure".
func NextAttemptAt(base time.Time, attemptNumber int, policy RetryPolicy) *time.Time {
	if attemptNumber < 0 || attemptNumber >= policy.MaxAttempts {
		return nil
	}
	if attemptNumber >= len(policy.MinutesAfterFailure) {
		return nil
	}
	t := base.Add(time.Duration(policy.MinutesAfterFailure[attemptNumber]) * time.Minute)
	return &t
}

// Package metrics computes the statutory on-time performance and delay metrics for
// intercity passenger rail service from normalized per-stop event records.
package metrics

// Config carries the reporting thresholds every metric computation uses. Components take a
// Config by value so tests can vary thresholds without process wide state.
type Config struct {
	// OnTimeThresholdMinutes is the lateness at or under which a customer counts as on time
	OnTimeThresholdMinutes float64
	// OTPStandardPercent is the minimum OTP a train must sustain; two consecutive quarters
	// below it mark the train non-compliant
	OTPStandardPercent float64
	// DelayRateBasisMiles is the train-mile basis delay minutes are normalized against
	DelayRateBasisMiles float64
}

// DefaultConfig returns the statutory thresholds
func DefaultConfig() Config {
	return Config{
		OnTimeThresholdMinutes: 15,
		OTPStandardPercent:     80,
		DelayRateBasisMiles:    10000,
	}
}

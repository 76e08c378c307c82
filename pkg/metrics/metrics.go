package metrics

import "time"

// Counter and latency names recorded by the gateway.
const (
	ChallengesIssued     = "challenges_issued"
	PaymentsAccepted     = "payments_accepted"
	PaymentsInsufficient = "payments_insufficient"
	PaymentsExpired      = "payments_expired"
	Broadcasts           = "broadcasts"
	BroadcastsFailed     = "broadcasts_failed"
	UpstreamNotFound     = "upstream_not_found"
	HandleLatency        = "handle"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}

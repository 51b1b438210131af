package supervisor

import "time"

// restartBackoff mirrors the policy: min(500ms * 2^(restartCount-1), 30s).
// restartCount is the count after incrementing for the current attempt, so
// the first involuntary restart (restartCount==1) waits 500ms.
func restartBackoff(restartCount int) time.Duration {
	if restartCount <= 0 {
		return 0
	}
	ms := minRestartBackoff << uint(restartCount-1)
	if ms <= 0 || ms > maxRestartBackoff { // guard against shift overflow
		ms = maxRestartBackoff
	}
	return time.Duration(ms) * time.Millisecond
}

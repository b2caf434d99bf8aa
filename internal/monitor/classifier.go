package monitor

import "time"

// Classify applies a probe outcome to t and returns the status transition.
// Success resets the streak; each failure extends it until threshold marks
// the target Down.
func Classify(t *Target, res ProbeResult, threshold int) Transition {
	if threshold < 1 {
		threshold = 1
	}

	tr := Transition{From: t.Status}

	t.StatusCode = res.StatusCode
	t.ResponseTime = res.ResponseTime
	if !res.CheckedAt.IsZero() {
		t.LastChecked = res.CheckedAt
	}

	if res.Success {
		t.Status = StatusUp
		t.ErrorCount = 0
		t.LastError = ""
		t.Alerted = false
		t.AlertedAt = time.Time{}
		tr.To = t.Status
		return tr
	}

	t.ErrorCount++
	if res.Err != nil {
		t.LastError = res.Err.Error()
	}

	if t.ErrorCount >= threshold {
		t.Status = StatusDown
	} else {
		t.Status = StatusError
	}

	tr.To = t.Status
	return tr
}

package monitor

import (
	"errors"
	"testing"
	"time"
)

var errFake = errors.New("fake failure")

func probeFail() ProbeResult {
	return ProbeResult{Success: false, Err: errFake, CheckedAt: time.Now()}
}

func probeOK() ProbeResult {
	return ProbeResult{Success: true, StatusCode: 200, CheckedAt: time.Now()}
}

func TestClassifyErrorCountTracksFailures(t *testing.T) {
	target := &Target{Status: StatusUnknown}

	for n := 1; n <= 6; n++ {
		Classify(target, probeFail(), 3)
		if target.ErrorCount != n {
			t.Fatalf("Expected error count %d, got %d", n, target.ErrorCount)
		}
		if (target.Status == StatusDown) != (target.ErrorCount >= 3) {
			t.Fatalf("Expected Down iff error count >= 3, got %s at %d", target.Status, target.ErrorCount)
		}
	}
}

func TestClassifyTransitions(t *testing.T) {
	tests := []struct {
		name      string
		results   []ProbeResult
		threshold int
		want      Status
		wantCount int
	}{
		{"first success", []ProbeResult{probeOK()}, 3, StatusUp, 0},
		{"single failure is error", []ProbeResult{probeFail()}, 3, StatusError, 1},
		{"threshold reached", []ProbeResult{probeFail(), probeFail(), probeFail()}, 3, StatusDown, 3},
		{"below threshold then success", []ProbeResult{probeFail(), probeFail(), probeOK()}, 3, StatusUp, 0},
		{"threshold one", []ProbeResult{probeFail()}, 1, StatusDown, 1},
		{"down then recovery", []ProbeResult{probeFail(), probeFail(), probeFail(), probeFail(), probeOK()}, 3, StatusUp, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &Target{Status: StatusUnknown}
			for _, res := range tt.results {
				Classify(target, res, tt.threshold)
			}
			if target.Status != tt.want {
				t.Errorf("Expected status %s, got %s", tt.want, target.Status)
			}
			if target.ErrorCount != tt.wantCount {
				t.Errorf("Expected error count %d, got %d", tt.wantCount, target.ErrorCount)
			}
		})
	}
}

func TestClassifyNeverSkipsError(t *testing.T) {
	target := &Target{Status: StatusUnknown}

	seen := []Status{}
	for i := 0; i < 2; i++ {
		Classify(target, probeFail(), 3)
		seen = append(seen, target.Status)
	}
	tr := Classify(target, probeOK(), 3)

	for _, s := range seen {
		if s == StatusDown {
			t.Fatalf("Expected no Down before threshold, saw %v", seen)
		}
	}
	if tr.From != StatusError || tr.To != StatusUp {
		t.Errorf("Expected Error -> Up, got %s -> %s", tr.From, tr.To)
	}
}

func TestClassifySuccessClearsAlert(t *testing.T) {
	target := &Target{
		Status:     StatusDown,
		ErrorCount: 4,
		Alerted:    true,
		AlertedAt:  time.Now(),
		LastError:  "boom",
	}

	Classify(target, probeOK(), 3)

	if target.Alerted {
		t.Error("Expected alerted marker to be cleared on recovery")
	}
	if !target.AlertedAt.IsZero() {
		t.Error("Expected alerted_at to be cleared on recovery")
	}
	if target.LastError != "" {
		t.Errorf("Expected last error cleared, got %q", target.LastError)
	}
	if target.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", target.StatusCode)
	}
}

func TestClassifyFailureKeepsAlert(t *testing.T) {
	target := &Target{Status: StatusDown, ErrorCount: 3, Alerted: true}

	Classify(target, probeFail(), 3)

	if !target.Alerted {
		t.Error("Expected alerted marker to survive a continued streak")
	}
	if target.LastError != errFake.Error() {
		t.Errorf("Expected last error %q, got %q", errFake.Error(), target.LastError)
	}
}

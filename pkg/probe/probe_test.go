package probe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{
			Name:     "route",
			Check:    func(ctx context.Context) error { return nil },
			Critical: true,
		},
		{
			Name:     "references",
			Check:    func(ctx context.Context) error { return errors.New("2 of 3 snapshots") },
			Critical: false,
		},
		{
			Name: "deadline",
			Check: func(ctx context.Context) error {
				if _, ok := ctx.Deadline(); !ok {
					return errors.New("no deadline")
				}
				return nil
			},
		},
	}

	results := Run(context.Background(), probes)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if !results[0].Passed() {
		t.Errorf("Expected route probe to pass, got error: %v", results[0].Error)
	}
	if results[1].Passed() {
		t.Error("Expected references probe to fail")
	}
	if !results[2].Passed() {
		t.Errorf("Expected checks to run with a deadline: %v", results[2].Error)
	}
}

func TestAnalyzeResults(t *testing.T) {
	errDB := errors.New("db locked")

	tests := []struct {
		name    string
		results []Result
		wantErr error
	}{
		{
			name: "All Pass",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Duration: time.Millisecond},
			},
		},
		{
			name: "Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "recorder", Critical: true}, Error: errDB},
			},
			wantErr: errDB,
		},
		{
			name: "Warning Only",
			results: []Result{
				{Probe: Probe{Name: "features", Critical: false}, Error: errors.New("fail")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("AnalyzeResults() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AnalyzeResults() error = %v, want wrapping %v", err, tt.wantErr)
			}
		})
	}
}

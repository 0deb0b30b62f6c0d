package synth

import (
	"errors"
	"testing"

	"github.com/saypipe/saypipe/internal/fault"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want fault.Code
	}{
		{"connection reset", errors.New("read: connection reset by peer"), fault.CodeNetwork},
		{"dial timeout", errors.New("dial tcp: i/o timeout"), fault.CodeNetwork},
		{"dns failure", errors.New("lookup host: no such host"), fault.CodeNetwork},
		{"gateway error", errors.New("websocket: bad handshake, status 503"), fault.CodeNetwork},
		{"throttled", errors.New("too many requests"), fault.CodeNetwork},
		{"bad request", errors.New("server returned 400 bad request"), fault.CodeRemoteRejected},
		{"invalid ssml", errors.New("invalid ssml payload"), fault.CodeRemoteRejected},
		{"forbidden", errors.New("403 forbidden"), fault.CodeRemoteRejected},
		{"unknown", errors.New("something odd happened"), fault.CodeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			f := fault.From(got)
			if f == nil {
				t.Fatalf("Expected a classified fault, got %v", got)
			}
			if f.Code != tt.want {
				t.Errorf("Expected code %s, got %s", tt.want, f.Code)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("Classified fault should wrap the original error")
			}
		})
	}
}

func TestClassify_NilAndPreclassified(t *testing.T) {
	if Classify(nil) != nil {
		t.Errorf("Expected nil for nil input")
	}

	pre := fault.New(fault.CodeRemoteRejected, fault.StageSynthesis, "refused", nil)
	if got := Classify(pre); got != error(pre) {
		t.Errorf("Expected pre-classified error to pass through, got %v", got)
	}
}

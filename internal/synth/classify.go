package synth

import (
	"errors"
	"net"
	"strings"

	"github.com/saypipe/saypipe/internal/fault"
)

// Substrings that mark a transient transport failure worth retrying.
var transientMarkers = []string{
	"timeout",
	"timed out",
	"connection",
	"reset by peer",
	"broken pipe",
	"unexpected eof",
	"no such host",
	"unreachable",
	"temporar",
	"rate limit",
	"too many requests",
	"502",
	"503",
	"504",
}

// Substrings that mark a request the remote accepted and refused. Retrying
// reproduces the refusal, so these are terminal.
var rejectionMarkers = []string{
	"bad request",
	"invalid",
	"malformed",
	"unauthorized",
	"forbidden",
	"400",
	"401",
	"403",
}

// Classify maps a raw synthesis error onto the fault taxonomy. Already
// classified errors pass through. Unknown errors are treated as transient,
// matching the remote service's failure profile: its refusals are explicit,
// its flakiness is not.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if f := fault.From(err); f != nil {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fault.New(fault.CodeNetwork, fault.StageSynthesis, "synthesis transport timeout", err)
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rejectionMarkers {
		if strings.Contains(msg, marker) {
			return fault.New(fault.CodeRemoteRejected, fault.StageSynthesis, "remote rejected request", err)
		}
	}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return fault.New(fault.CodeNetwork, fault.StageSynthesis, "transient synthesis failure", err)
		}
	}
	return fault.New(fault.CodeNetwork, fault.StageSynthesis, "synthesis failure", err)
}

package server

import (
	"time"

	"github.com/ndstream/receiver/receiver"
	"github.com/ndstream/receiver/registry"
)

// DuplicateOutcome is the result of classifying an existing receiver
// attachment for the same machine identity (spec.md §4.D).
type DuplicateOutcome int

const (
	// NoConflict means there was no previous receiver, or the previous
	// one was stale and has since confirmed it stopped.
	NoConflict DuplicateOutcome = iota
	// StillBusy means a working receiver is attached, or a stale one
	// failed to stop within the wait bound; the caller must reject.
	StillBusy
)

func (o DuplicateOutcome) String() string {
	if o == NoConflict {
		return "no_conflict"
	}
	return "still_busy"
}

// duplicateResult carries enough detail for the access log line
// spec.md §4.D's rejection message requires: age and whether a stop was
// signaled.
type duplicateResult struct {
	outcome        DuplicateOutcome
	ageWhenChecked time.Duration
	stopSignaled   bool
}

// resolveDuplicate implements spec.md §4.D: classify any existing
// attachment under the registry's locks, release them, then -- only for
// a stale attachment -- block waiting for its cooperative exit.
func resolveDuplicate(reg *registry.Registry, machineGUID string, waitTimeout time.Duration) duplicateResult {
	host, ok := reg.FindByGUID(machineGUID)
	if !ok {
		return duplicateResult{outcome: NoConflict}
	}

	occupancy, age, previous := host.Classify(time.Now())

	switch occupancy {
	case registry.Empty:
		return duplicateResult{outcome: NoConflict}

	case registry.Working:
		return duplicateResult{outcome: StillBusy, ageWhenChecked: age}

	case registry.Stale:
		previous.RequestStop(string(receiver.ExitDisconnectStaleReceiver))
		select {
		case <-previous.Stopped():
			host.ClearReceiver(previous)
			return duplicateResult{outcome: NoConflict, ageWhenChecked: age, stopSignaled: true}
		case <-time.After(waitTimeout):
			return duplicateResult{outcome: StillBusy, ageWhenChecked: age, stopSignaled: true}
		}

	default:
		return duplicateResult{outcome: StillBusy, ageWhenChecked: age}
	}
}

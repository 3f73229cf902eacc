// Package progression defines the ladder progression modes and the pure
// rep/round arithmetic that drives a workout run.
package progression

import "fmt"

// PeakRound is the highest round number in every ladder. Ascending runs
// 1..PeakRound, Descending runs PeakRound..1, Full runs up and back down.
const PeakRound = 10

// Mode is the shape of the round-number sequence across a workout.
type Mode int

const (
	Ascending Mode = iota
	Descending
	Full
)

// Phase tracks which half of a Full ladder a run is in. It is meaningless
// for Ascending and Descending runs.
type Phase int

const (
	PhaseAscending Phase = iota
	PhaseDescending
)

// String returns the canonical lowercase name used in config files, mode
// identifiers, and the wire format.
func (m Mode) String() string {
	switch m {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses the canonical mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "ascending":
		return Ascending, nil
	case "descending":
		return Descending, nil
	case "full":
		return Full, nil
	}
	return 0, fmt.Errorf("unknown progression mode %q", s)
}

// StartRound returns the round number a run opens with.
func (m Mode) StartRound() int {
	if m == Descending {
		return PeakRound
	}
	return 1
}

// StartPhase returns the phase a run opens with. Descending ladders spend
// their whole life in the descending phase.
func (m Mode) StartPhase() Phase {
	if m == Descending {
		return PhaseDescending
	}
	return PhaseAscending
}

// TotalRounds returns how many rounds the mode visits. Full visits the
// peak round once, so it is 2*PeakRound-1 rather than 2*PeakRound.
func (m Mode) TotalRounds() int {
	if m == Full {
		return 2*PeakRound - 1
	}
	return PeakRound
}

// RoundSum returns the sum of every round number the mode visits:
// 55 for Ascending and Descending (1+..+10), 100 for Full (55 up, 45 down).
func (m Mode) RoundSum() int {
	up := PeakRound * (PeakRound + 1) / 2
	if m == Full {
		return 2*up - PeakRound
	}
	return up
}

// RepsForRound returns the rep count for one exercise at one round:
// multiplier * round.
func RepsForRound(multiplier, round int) int {
	return multiplier * round
}

// TotalReps returns the rep total for a whole workout over the given
// exercise multipliers: sum(multipliers) * RoundSum.
func TotalReps(multipliers []int, mode Mode) int {
	sum := 0
	for _, m := range multipliers {
		sum += m
	}
	return sum * mode.RoundSum()
}

// Next computes the round that follows the current one. done reports that
// the ladder is finished and the returned round is not to be played.
//
// In Full mode the peak round flips the phase instead of repeating: after
// round 10 the next round is 9, descending.
func Next(mode Mode, round int, phase Phase) (next int, nextPhase Phase, done bool) {
	switch mode {
	case Ascending:
		next = round + 1
		return next, phase, next > PeakRound
	case Descending:
		next = round - 1
		return next, phase, next < 1
	case Full:
		if phase == PhaseAscending {
			if round == PeakRound {
				return PeakRound - 1, PhaseDescending, false
			}
			return round + 1, PhaseAscending, false
		}
		next = round - 1
		return next, PhaseDescending, next < 1
	default:
		return round, phase, true
	}
}

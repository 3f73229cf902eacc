package models

import "sort"

// PersonalBest is one workout type's best marks across a set of sessions.
type PersonalBest struct {
	ModeKey         string `json:"workout_mode"`
	Sessions        int    `json:"sessions"`
	Completed       int    `json:"completed"`
	BestTimeSeconds *int   `json:"best_time_seconds,omitempty"`
	MostReps        int    `json:"most_reps"`
}

// PersonalBests aggregates sessions per workout mode key. Best time only
// considers completed sessions; a faster abandoned run is not a record.
// Results are sorted by mode key.
func PersonalBests(recs []SessionRecord) []PersonalBest {
	byMode := map[string]*PersonalBest{}
	for _, rec := range recs {
		pb, ok := byMode[rec.ModeKey]
		if !ok {
			pb = &PersonalBest{ModeKey: rec.ModeKey}
			byMode[rec.ModeKey] = pb
		}
		pb.Sessions++
		if rec.TotalReps > pb.MostReps {
			pb.MostReps = rec.TotalReps
		}
		if rec.Completed {
			pb.Completed++
			if pb.BestTimeSeconds == nil || rec.TotalSeconds < *pb.BestTimeSeconds {
				secs := rec.TotalSeconds
				pb.BestTimeSeconds = &secs
			}
		}
	}

	out := make([]PersonalBest, 0, len(byMode))
	for _, pb := range byMode {
		out = append(out, *pb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModeKey < out[j].ModeKey })
	return out
}

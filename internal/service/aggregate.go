package service

import (
	"encoding/json"
	"sort"

	"github.com/chayanin/tripvote-service/internal/models"
)

// AggregatedPlace is one entry of the merged vote list: the first voter's
// place payload plus the summed vote count and the list of voters.
type AggregatedPlace struct {
	PlaceID   string
	PlaceData map[string]any
	Votes     int
	Voters    []string
}

// MarshalJSON flattens the place payload and overlays the aggregate fields,
// matching the wire shape the itinerary producer expects.
func (p AggregatedPlace) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.PlaceData)+2)
	for k, v := range p.PlaceData {
		out[k] = v
	}
	out["votes"] = p.Votes
	out["voters"] = p.Voters
	return json.Marshal(out)
}

// AggregateVotes folds all vote rows of a room into one ranked list keyed by
// place. Vote counts sum across users; the first occurrence of a place seeds
// its payload. The result is sorted by votes descending; ties keep encounter
// order (rows arrive in insertion order, so this is deterministic).
func AggregateVotes(votes []models.Vote) []AggregatedPlace {
	index := make(map[string]int)
	combined := make([]AggregatedPlace, 0, len(votes))

	for _, v := range votes {
		i, seen := index[v.PlaceID]
		if !seen {
			var payload map[string]any
			if err := json.Unmarshal(v.PlaceData, &payload); err != nil || payload == nil {
				payload = map[string]any{"placeId": v.PlaceID}
			}
			index[v.PlaceID] = len(combined)
			combined = append(combined, AggregatedPlace{
				PlaceID:   v.PlaceID,
				PlaceData: payload,
			})
			i = len(combined) - 1
		}
		combined[i].Votes += v.VoteCount
		combined[i].Voters = append(combined[i].Voters, v.UserID)
	}

	sort.SliceStable(combined, func(a, b int) bool {
		return combined[a].Votes > combined[b].Votes
	})

	return combined
}

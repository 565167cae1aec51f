package dto

import "encoding/json"

type JoinRoomRequest struct {
	UserName string `json:"userName"`
}

// PlaceVote is one voted place in a submission. The payload is kept verbatim
// alongside the two fields the core reads (placeId, votes).
type PlaceVote struct {
	PlaceID string
	Count   int
	Payload map[string]any
}

func (p *PlaceVote) UnmarshalJSON(b []byte) error {
	var fields struct {
		PlaceID string `json:"placeId"`
		Votes   int    `json:"votes"`
	}
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	var payload map[string]any
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}

	p.PlaceID = fields.PlaceID
	p.Count = fields.Votes
	p.Payload = payload
	return nil
}

type SubmitVotesRequest struct {
	UserID   string      `json:"userId"`
	UserName string      `json:"userName"`
	Votes    []PlaceVote `json:"votes"`
}

package dto

// SearchHistoryMessage is one prior conversation turn sent by the client.
type SearchHistoryMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

type SearchRequest struct {
	Query         string                 `json:"query" validate:"required,min=1,max=4000"`
	Mode          string                 `json:"mode" validate:"omitempty,oneof=quick pro ultra"`
	SessionId     string                 `json:"session_id" validate:"omitempty,uuid4"`
	History       []SearchHistoryMessage `json:"history" validate:"omitempty,dive"`
	AttachmentIds []string               `json:"attachment_ids" validate:"omitempty,dive,uuid4"`
	Instructions  string                 `json:"instructions" validate:"omitempty,max=2000"`
}

// SearchResponse is the one-shot REST result, assembled by draining the run's
// event stream.
type SearchResponse struct {
	RunId     string      `json:"run_id"`
	Mode      string      `json:"mode"`
	Answer    string      `json:"answer"`
	Sources   interface{} `json:"sources"`
	FollowUps interface{} `json:"follow_ups,omitempty"`
	Degraded  bool        `json:"degraded,omitempty"`
}

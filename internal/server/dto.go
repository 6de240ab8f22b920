package server

import (
	"sigma/internal/derive"
	"sigma/internal/domain"
	"sigma/internal/seed"
)

// Request payloads

// CreateEventRequest is the loose override shape accepted by POST /events.
// Absolute timestamps win over the relative minutes-ago fields.
type CreateEventRequest struct {
	ID                *int64           `json:"id,omitempty"`
	Domain            domain.AgentID   `json:"domain" enum:"heat,air,noise"`
	Title             string           `json:"title"`
	Description       string           `json:"description,omitempty"`
	Level             int              `json:"level,omitempty" minimum:"1" maximum:"3"`
	Status            string           `json:"status,omitempty"`
	RequiresAttention *bool            `json:"requires_attention,omitempty"`
	CreatedAt         int64            `json:"created_at,omitempty"`
	UpdatedAt         int64            `json:"updated_at,omitempty"`
	CreatedMinutesAgo int              `json:"created_minutes_ago,omitempty"`
	UpdatedMinutesAgo int              `json:"updated_minutes_ago,omitempty"`
	Location          *domain.Location `json:"location,omitempty"`
	Source            *domain.Source   `json:"source,omitempty"`
	Recommendations   []string         `json:"recommendations,omitempty"`
}

func (r CreateEventRequest) override(id int64) seed.EventOverride {
	return seed.EventOverride{
		ID:                id,
		Domain:            r.Domain,
		Title:             r.Title,
		Description:       r.Description,
		Level:             r.Level,
		Status:            r.Status,
		RequiresAttention: r.RequiresAttention,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		CreatedMinutesAgo: r.CreatedMinutesAgo,
		UpdatedMinutesAgo: r.UpdatedMinutesAgo,
		Location:          r.Location,
		Source:            r.Source,
		Recommendations:   r.Recommendations,
	}
}

type AddActionRequest struct {
	ID      *string        `json:"id,omitempty"`
	AgentID domain.AgentID `json:"agent_id" enum:"heat,air,noise"`
	Action  string         `json:"action" enum:"notify,assign_task,request_info,create_document,escalate,auto_close,comment"`
	Summary string         `json:"summary"`
	EventID int64          `json:"event_id,omitempty"`
	Result  string         `json:"result,omitempty" enum:"success,pending,failed"`
}

type SetFlagRequest struct {
	Value bool `json:"value"`
}

type DevLoginRequest struct {
	ActorID string `json:"actor_id"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// Response payloads

// EventResponse is an event enriched with its derived classification and
// predicates, so dashboard clients need not re-derive them.
type EventResponse struct {
	ID                int64               `json:"id"`
	CreatedAt         int64               `json:"created_at"`
	Msg               domain.EventPayload `json:"msg"`
	AgentID           domain.AgentID      `json:"agent_id,omitempty"`
	Closed            bool                `json:"closed"`
	RequiresAttention bool                `json:"requires_attention"`
}

func eventResponse(e domain.Event) EventResponse {
	resp := EventResponse{
		ID:                e.ID,
		CreatedAt:         e.CreatedAt,
		Msg:               e.Msg,
		Closed:            derive.Closed(e),
		RequiresAttention: derive.RequiresAttention(e),
	}
	if id, ok := derive.AgentForEvent(e); ok {
		resp.AgentID = id
	}
	return resp
}

func mapEvents(events []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse(e))
	}
	return out
}

type eventList struct {
	Items []EventResponse `json:"items"`
}

type actionList struct {
	Items []domain.ActionLogEntry `json:"items"`
}

type taskList struct {
	Items []domain.Task `json:"items"`
}

type seriesResponse struct {
	AgentID domain.AgentID           `json:"agent_id"`
	Points  []domain.TimeSeriesPoint `json:"points"`
}

package domain

// AgentID identifies one of the monitored city subsystems.
type AgentID string

const (
	AgentHeat  AgentID = "heat"
	AgentAir   AgentID = "air"
	AgentNoise AgentID = "noise"
)

// Agent is a runtime view of a catalog entry plus its pause flag.
type Agent struct {
	ID             AgentID `json:"id"`
	Title          string  `json:"title"`
	Responsibility string  `json:"responsibility"`
	Paused         bool    `json:"paused"`
}

// AgentState is the derived operational state of an agent.
type AgentState string

const (
	StateActive AgentState = "active"
	StateNoData AgentState = "no_data"
	StatePaused AgentState = "paused"
)

// Event status values. Transitions are not validated: any status may be
// set from any status via patch or close.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

// Severity levels. 1 is the highest, 3 is informational.
const (
	LevelCritical = 1
	LevelWarning  = 2
	LevelInfo     = 3
)

type Location struct {
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

type Source struct {
	System   string `json:"system,omitempty"`
	SensorID string `json:"sensor_id,omitempty"`
}

// EventPayload is the semi-structured body of an event. Every field the
// dashboard reads is an explicit optional member rather than an open map.
type EventPayload struct {
	Domain            string    `json:"domain,omitempty"`
	Title             string    `json:"title,omitempty"`
	Description       string    `json:"description,omitempty"`
	Level             int       `json:"level,omitempty"`
	Status            string    `json:"status,omitempty"`
	RequiresAttention *bool     `json:"requires_attention,omitempty"`
	UpdatedAt         int64     `json:"updated_at,omitempty"`
	Location          *Location `json:"location,omitempty"`
	Source            *Source   `json:"source,omitempty"`
	Recommendations   []string  `json:"recommendations,omitempty"`
	Text              string    `json:"msg,omitempty"`
	System            string    `json:"system,omitempty"`
	Category          string    `json:"category,omitempty"`
	Type              string    `json:"type,omitempty"`
	NetworkID         string    `json:"network_id,omitempty"`
	ClosedBy          string    `json:"closed_by,omitempty"`
	ClosedAt          int64     `json:"closed_at,omitempty"`
	CloseComment      string    `json:"close_comment,omitempty"`
	CloseReason       string    `json:"close_reason,omitempty"`
}

// Event is a recorded incident or alert. ID is immutable and unique within
// the store; CreatedAt and all payload timestamps are epoch milliseconds.
type Event struct {
	ID        int64        `json:"id"`
	CreatedAt int64        `json:"created_at"`
	Msg       EventPayload `json:"msg"`
}

// PayloadPatch carries partial payload updates. Present (non-nil) fields
// overwrite the corresponding payload members; the merge is one level deep.
type PayloadPatch struct {
	Domain            *string   `json:"domain,omitempty"`
	Title             *string   `json:"title,omitempty"`
	Description       *string   `json:"description,omitempty"`
	Level             *int      `json:"level,omitempty"`
	Status            *string   `json:"status,omitempty"`
	RequiresAttention *bool     `json:"requires_attention,omitempty"`
	UpdatedAt         *int64    `json:"updated_at,omitempty"`
	Location          *Location `json:"location,omitempty"`
	Source            *Source   `json:"source,omitempty"`
	Recommendations   []string  `json:"recommendations,omitempty"`
	Text              *string   `json:"msg,omitempty"`
	System            *string   `json:"system,omitempty"`
	Category          *string   `json:"category,omitempty"`
	Type              *string   `json:"type,omitempty"`
	NetworkID         *string   `json:"network_id,omitempty"`
	ClosedBy          *string   `json:"closed_by,omitempty"`
	ClosedAt          *int64    `json:"closed_at,omitempty"`
	CloseComment      *string   `json:"close_comment,omitempty"`
	CloseReason       *string   `json:"close_reason,omitempty"`
}

// EventPatch is a partial event update. Top-level fields overwrite when
// present; Msg merges key-by-key via PayloadPatch.
type EventPatch struct {
	CreatedAt *int64        `json:"created_at,omitempty"`
	Msg       *PayloadPatch `json:"msg,omitempty"`
}

// Apply merges the patch into the event in place.
func (p EventPatch) Apply(e *Event) {
	if p.CreatedAt != nil {
		e.CreatedAt = *p.CreatedAt
	}
	if p.Msg != nil {
		p.Msg.Apply(&e.Msg)
	}
}

// Apply merges present patch fields into the payload in place.
func (p PayloadPatch) Apply(m *EventPayload) {
	if p.Domain != nil {
		m.Domain = *p.Domain
	}
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Level != nil {
		m.Level = *p.Level
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.RequiresAttention != nil {
		m.RequiresAttention = p.RequiresAttention
	}
	if p.UpdatedAt != nil {
		m.UpdatedAt = *p.UpdatedAt
	}
	if p.Location != nil {
		m.Location = p.Location
	}
	if p.Source != nil {
		m.Source = p.Source
	}
	if p.Recommendations != nil {
		m.Recommendations = p.Recommendations
	}
	if p.Text != nil {
		m.Text = *p.Text
	}
	if p.System != nil {
		m.System = *p.System
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.NetworkID != nil {
		m.NetworkID = *p.NetworkID
	}
	if p.ClosedBy != nil {
		m.ClosedBy = *p.ClosedBy
	}
	if p.ClosedAt != nil {
		m.ClosedAt = *p.ClosedAt
	}
	if p.CloseComment != nil {
		m.CloseComment = *p.CloseComment
	}
	if p.CloseReason != nil {
		m.CloseReason = *p.CloseReason
	}
}

// Action types recorded in the agent action log.
const (
	ActionNotify         = "notify"
	ActionAssignTask     = "assign_task"
	ActionRequestInfo    = "request_info"
	ActionCreateDocument = "create_document"
	ActionEscalate       = "escalate"
	ActionAutoClose      = "auto_close"
	ActionComment        = "comment"
)

// Action results.
const (
	ResultSuccess = "success"
	ResultPending = "pending"
	ResultFailed  = "failed"
)

// ActionLogEntry is one append-only record of an agent action. EventID is a
// soft reference into the event store and is not enforced.
type ActionLogEntry struct {
	ID      string  `json:"id"`
	AgentID AgentID `json:"agent_id"`
	Action  string  `json:"action"`
	TS      int64   `json:"ts"`
	Summary string  `json:"summary"`
	EventID int64   `json:"event_id,omitempty"`
	Result  string  `json:"result" enum:"success,pending,failed"`
}

// Task statuses and priorities.
const (
	TaskCreated    = "created"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
	TaskOverdue    = "overdue"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Task is a generated task/decision record. Read-only: no update API exists.
type Task struct {
	ID        string  `json:"id"`
	AgentID   AgentID `json:"agent_id"`
	Title     string  `json:"title"`
	CreatedAt int64   `json:"created_at"`
	DueAt     int64   `json:"due_at"`
	Status    string  `json:"status" enum:"created,in_progress,done,overdue"`
	Assignee  string  `json:"assignee"`
	Priority  string  `json:"priority" enum:"high,medium,low"`
	EventIDs  []int64 `json:"event_ids,omitempty"`
}

// TimeSeriesPoint is one sample of a per-domain metric series.
type TimeSeriesPoint struct {
	TS     int64              `json:"ts"`
	Values map[string]float64 `json:"values"`
}

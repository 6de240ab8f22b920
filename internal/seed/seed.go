// Package seed builds the synthetic demo data set. Every function is pure
// and deterministic for a fixed reference time and fixed flags, so derived
// computations stay reproducible in tests.
package seed

import (
	"fmt"
	"math"
	"time"

	"sigma/internal/catalog"
	"sigma/internal/derive"
	"sigma/internal/domain"
)

// staleExtra is added on top of the staleness threshold when a domain is
// forced stale, so the forged timestamp sits comfortably past the cutoff.
const staleExtra = 45 * time.Minute

// Options tune event generation.
type Options struct {
	// StaleAgents forces the listed domains' events to look stale.
	StaleAgents map[domain.AgentID]bool
	// Extra appends caller-supplied override events after the base seeds.
	Extra []EventOverride
}

// EventOverride is a loose event definition. Absolute timestamps win over
// the relative minutes-ago fields when both are present.
type EventOverride struct {
	ID                int64
	Domain            domain.AgentID
	Title             string
	Description       string
	Level             int
	Status            string
	RequiresAttention *bool
	CreatedAt         int64
	UpdatedAt         int64
	CreatedMinutesAgo int
	UpdatedMinutesAgo int
	Location          *domain.Location
	Source            *domain.Source
	Recommendations   []string
}

// Agents maps the static catalog to runtime agent records, applying any
// override pause flags.
func Agents(paused map[domain.AgentID]bool) []domain.Agent {
	var out []domain.Agent
	for _, entry := range catalog.Entries() {
		out = append(out, domain.Agent{
			ID:             entry.ID,
			Title:          entry.Title,
			Responsibility: entry.Responsibility,
			Paused:         paused[entry.ID],
		})
	}
	return out
}

type eventDef struct {
	id                int64
	agent             domain.AgentID
	title             string
	description       string
	level             int
	status            string
	createdMinutesAgo int
	updatedMinutesAgo int
	address           string
	system            string
	sensor            string
	recommendations   []string
}

var eventDefs = []eventDef{
	{
		id: 101, agent: domain.AgentHeat,
		title:             "Pressure drop on heating main M-7",
		description:       "Coolant pressure fell below 5.2 bar between chambers TK-14 and TK-15.",
		level:             domain.LevelWarning,
		status:            domain.StatusInProgress,
		createdMinutesAgo: 180, updatedMinutesAgo: 12,
		address: "Mira ave 42", system: "heat-scada", sensor: "hm-007",
		recommendations: []string{"Dispatch inspection crew to chamber TK-14", "Throttle feed pumps at plant 2"},
	},
	{
		id: 102, agent: domain.AgentHeat,
		title:             "Boiler plant 3 supply temperature deviation",
		description:       "Supply temperature 4.5 C under the approved schedule for the current outdoor band.",
		level:             domain.LevelInfo,
		status:            domain.StatusNew,
		createdMinutesAgo: 95, updatedMinutesAgo: 40,
		address: "Zavodskaya st 8", system: "heat-scada", sensor: "bp-003",
	},
	{
		id: 103, agent: domain.AgentAir,
		title:             "PM2.5 above daily limit in the eastern district",
		description:       "Rolling 24h PM2.5 at 41 ug/m3 against a 35 ug/m3 limit, three posts concur.",
		level:             domain.LevelWarning,
		status:            domain.StatusNew,
		createdMinutesAgo: 240, updatedMinutesAgo: 10,
		address: "Vostochny district", system: "eco-monitor", sensor: "aq-112",
		recommendations: []string{"Publish advisory for sensitive groups", "Cross-check post aq-117"},
	},
	{
		id: 104, agent: domain.AgentAir,
		title:             "Air quality post calibration drift",
		description:       "Post aq-205 reports a PM10 baseline offset after the weekly self-test.",
		level:             domain.LevelInfo,
		status:            domain.StatusResolved,
		createdMinutesAgo: 600, updatedMinutesAgo: 320,
		address: "Lesnaya st 17", system: "eco-monitor", sensor: "aq-205",
	},
	{
		id: 105, agent: domain.AgentNoise,
		title:             "Night noise exceedance near the ring road",
		description:       "Equivalent level 58 dBA between 23:00 and 01:00 against a 45 dBA night limit.",
		level:             domain.LevelWarning,
		status:            domain.StatusInProgress,
		createdMinutesAgo: 300, updatedMinutesAgo: 8,
		address: "Ring road km 14", system: "acoustic-net", sensor: "nm-031",
		recommendations: []string{"Request traffic count from the road operator"},
	},
	{
		id: 106, agent: domain.AgentNoise,
		title:             "Acoustic complaints cluster, Sadovaya block",
		description:       "Five resident complaints about construction noise; permitted window confirmed.",
		level:             domain.LevelInfo,
		status:            domain.StatusClosed,
		createdMinutesAgo: 700, updatedMinutesAgo: 500,
		address: "Sadovaya st 3", system: "citizen-portal", sensor: "",
	},
}

// Events builds the base seed events in catalog definition order, followed
// by any override events in call order. Domains flagged stale get their
// updated_at forced past the staleness threshold regardless of the
// definition's own update age.
func Events(now time.Time, opts Options) []domain.Event {
	var out []domain.Event
	for _, def := range eventDefs {
		e := domain.Event{
			ID:        def.id,
			CreatedAt: minutesAgo(now, def.createdMinutesAgo),
			Msg: domain.EventPayload{
				Domain:          string(def.agent),
				Title:           def.title,
				Description:     def.description,
				Level:           def.level,
				Status:          def.status,
				UpdatedAt:       minutesAgo(now, def.updatedMinutesAgo),
				Recommendations: def.recommendations,
			},
		}
		if def.address != "" {
			e.Msg.Location = &domain.Location{Address: def.address}
		}
		if def.system != "" {
			e.Msg.Source = &domain.Source{System: def.system, SensorID: def.sensor}
		}
		if opts.StaleAgents[def.agent] {
			e.Msg.UpdatedAt = staleUpdatedAt(now)
		}
		out = append(out, e)
	}
	for _, def := range opts.Extra {
		out = append(out, EventFromOverride(def, now, opts.StaleAgents))
	}
	return out
}

// EventFromOverride resolves a loose definition against the reference time.
func EventFromOverride(def EventOverride, now time.Time, stale map[domain.AgentID]bool) domain.Event {
	created := def.CreatedAt
	if created == 0 {
		created = minutesAgo(now, def.CreatedMinutesAgo)
	}
	updated := def.UpdatedAt
	if updated == 0 {
		updated = minutesAgo(now, def.UpdatedMinutesAgo)
	}
	if stale[def.Domain] {
		updated = staleUpdatedAt(now)
	}
	return domain.Event{
		ID:        def.ID,
		CreatedAt: created,
		Msg: domain.EventPayload{
			Domain:            string(def.Domain),
			Title:             def.Title,
			Description:       def.Description,
			Level:             def.Level,
			Status:            def.Status,
			RequiresAttention: def.RequiresAttention,
			UpdatedAt:         updated,
			Location:          def.Location,
			Source:            def.Source,
			Recommendations:   def.Recommendations,
		},
	}
}

// CriticalHeatEvent builds the high-severity override used by the demo
// control surface.
func CriticalHeatEvent(id int64, ts time.Time) EventOverride {
	return EventOverride{
		ID:          id,
		Domain:      domain.AgentHeat,
		Title:       "Critical pressure drop on heating main M-2",
		Description: "Coolant pressure collapsed to 2.1 bar; probable rupture between chambers TK-3 and TK-4.",
		Level:       domain.LevelCritical,
		Status:      domain.StatusNew,
		CreatedAt:   ts.UnixMilli(),
		UpdatedAt:   ts.UnixMilli(),
		Location:    &domain.Location{Address: "Pervomayskaya st 11"},
		Source:      &domain.Source{System: "heat-scada", SensorID: "hm-002"},
		Recommendations: []string{
			"Isolate the damaged section",
			"Notify the district duty dispatcher",
			"Switch consumers to the reserve main",
		},
	}
}

type actionDef struct {
	id         string
	agent      domain.AgentID
	action     string
	minutesAgo int
	summary    string
	eventID    int64
	result     string
}

var actionDefs = []actionDef{
	{"act-001", domain.AgentHeat, domain.ActionNotify, 11, "Duty dispatcher notified about pressure drop on main M-7", 101, domain.ResultSuccess},
	{"act-002", domain.AgentHeat, domain.ActionAssignTask, 10, "Inspection crew assigned to chamber TK-14", 101, domain.ResultSuccess},
	{"act-003", domain.AgentAir, domain.ActionRequestInfo, 9, "Requested raw readings from post aq-117 for cross-check", 103, domain.ResultPending},
	{"act-004", domain.AgentAir, domain.ActionCreateDocument, 8, "Drafted advisory for sensitive groups, eastern district", 103, domain.ResultSuccess},
	{"act-005", domain.AgentNoise, domain.ActionEscalate, 25, "Escalated repeat night exceedance to the road operator", 105, domain.ResultPending},
	{"act-006", domain.AgentAir, domain.ActionAutoClose, 320, "Calibration drift confirmed fixed after self-test rerun", 104, domain.ResultSuccess},
	{"act-007", domain.AgentNoise, domain.ActionComment, 495, "Permitted work window verified against the construction permit", 106, domain.ResultSuccess},
	{"act-008", domain.AgentHeat, domain.ActionNotify, 90, "Schedule deviation report sent to plant 3 operator", 102, domain.ResultFailed},
}

// ActionLog maps the fixed action table to absolute-timestamped entries.
func ActionLog(now time.Time) []domain.ActionLogEntry {
	var out []domain.ActionLogEntry
	for _, def := range actionDefs {
		out = append(out, domain.ActionLogEntry{
			ID:      def.id,
			AgentID: def.agent,
			Action:  def.action,
			TS:      minutesAgo(now, def.minutesAgo),
			Summary: def.summary,
			EventID: def.eventID,
			Result:  def.result,
		})
	}
	return out
}

type taskDef struct {
	id                string
	agent             domain.AgentID
	title             string
	createdMinutesAgo int
	dueInMinutes      int
	status            string
	assignee          string
	priority          string
	eventIDs          []int64
}

var taskDefs = []taskDef{
	{"task-001", domain.AgentHeat, "Inspect chambers TK-14..TK-15 and report findings", 170, 120, domain.TaskInProgress, "crew-7", domain.PriorityHigh, []int64{101}},
	{"task-002", domain.AgentHeat, "Prepare schedule correction for boiler plant 3", 90, 1440, domain.TaskCreated, "engineer-iv", domain.PriorityMedium, []int64{102}},
	{"task-003", domain.AgentAir, "Publish advisory for sensitive groups", 230, -30, domain.TaskOverdue, "press-office", domain.PriorityHigh, []int64{103}},
	{"task-004", domain.AgentAir, "Recalibrate post aq-205 against the reference unit", 580, 2880, domain.TaskDone, "metrology", domain.PriorityLow, []int64{104}},
	{"task-005", domain.AgentNoise, "Collect traffic counts for ring road km 14", 280, 720, domain.TaskCreated, "analyst-2", domain.PriorityMedium, []int64{105}},
}

// Tasks maps the fixed task table to absolute created/due timestamps. A
// negative due offset yields a due date in the past, marking the task
// overdue.
func Tasks(now time.Time) []domain.Task {
	var out []domain.Task
	for _, def := range taskDefs {
		out = append(out, domain.Task{
			ID:        def.id,
			AgentID:   def.agent,
			Title:     def.title,
			CreatedAt: minutesAgo(now, def.createdMinutesAgo),
			DueAt:     now.Add(time.Duration(def.dueInMinutes) * time.Minute).UnixMilli(),
			Status:    def.status,
			Assignee:  def.assignee,
			Priority:  def.priority,
			EventIDs:  def.eventIDs,
		})
	}
	return out
}

type metricSpec struct {
	name string
	base float64
	amp  float64
}

var metricTables = map[domain.AgentID][]metricSpec{
	domain.AgentHeat:  {{"pressure_bar", 6.2, 0.35}, {"supply_temp_c", 71, 4}},
	domain.AgentAir:   {{"pm25_ugm3", 18, 9}},
	domain.AgentNoise: {{"level_dba", 47, 8}},
}

const seriesPoints = 24

// Timeseries builds a fixed 24-point hourly series ending at now for each
// domain's metric table.
func Timeseries(now time.Time) map[domain.AgentID][]domain.TimeSeriesPoint {
	out := make(map[domain.AgentID][]domain.TimeSeriesPoint, len(metricTables))
	for _, id := range catalog.IDs() {
		specs := metricTables[id]
		series := make([]domain.TimeSeriesPoint, 0, seriesPoints)
		for i := 0; i < seriesPoints; i++ {
			ts := now.Add(-time.Duration(seriesPoints-1-i) * time.Hour)
			values := make(map[string]float64, len(specs))
			for _, spec := range specs {
				phase := 2 * math.Pi * float64(i) / seriesPoints
				values[spec.name] = round1(spec.base + spec.amp*math.Sin(phase))
			}
			series = append(series, domain.TimeSeriesPoint{TS: ts.UnixMilli(), Values: values})
		}
		out[id] = series
	}
	return out
}

// NextActionID builds a collision-resistant id for entries added at runtime.
func NextActionID(now time.Time, suffix string) string {
	return fmt.Sprintf("act-%d-%s", now.UnixMilli(), suffix)
}

func minutesAgo(now time.Time, minutes int) int64 {
	return now.Add(-time.Duration(minutes) * time.Minute).UnixMilli()
}

func staleUpdatedAt(now time.Time) int64 {
	return now.Add(-(derive.StalenessThreshold + staleExtra)).UnixMilli()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

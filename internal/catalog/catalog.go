package catalog

import "sigma/internal/domain"

// Entry is a static catalog record for one monitored subsystem. Keywords are
// matched as lower-case substrings against an event's text fields; entries
// are checked in catalog order and the first match wins.
type Entry struct {
	ID             domain.AgentID
	Title          string
	Responsibility string
	Keywords       []string
}

var entries = []Entry{
	{
		ID:             domain.AgentHeat,
		Title:          "Heating networks",
		Responsibility: "District heating mains, boiler plants, coolant pressure and supply temperature.",
		Keywords:       []string{"heat", "heating", "boiler", "coolant"},
	},
	{
		ID:             domain.AgentAir,
		Title:          "Air quality",
		Responsibility: "Ambient air monitoring: particulate matter, smog and pollutant thresholds.",
		Keywords:       []string{"air", "pm2.5", "pm10", "smog"},
	},
	{
		ID:             domain.AgentNoise,
		Title:          "Noise monitoring",
		Responsibility: "Acoustic load in residential zones, night-time exceedances and complaints.",
		Keywords:       []string{"noise", "acoustic", "decibel", "dba"},
	},
}

// Entries returns the catalog in classification order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Lookup returns the catalog entry for an agent id.
func Lookup(id domain.AgentID) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// IDs returns all agent ids in catalog order.
func IDs() []domain.AgentID {
	out := make([]domain.AgentID, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

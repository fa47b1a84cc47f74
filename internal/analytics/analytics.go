package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"persona-chatter/internal/storage"
)

// DailyStats aggregates one day of recorded turns.
type DailyStats struct {
	Date            string                  `json:"date"`
	TotalTurns      int                     `json:"total_turns"`
	UniqueUsers     int                     `json:"unique_users"`
	ToolCallsTotal  int                     `json:"tool_calls_total"`
	ToolCallsByName map[string]int          `json:"tool_calls_by_name"`
	PersonaStats    map[string]PersonaStats `json:"persona_stats"`
}

type PersonaStats struct {
	Persona     string `json:"persona"`
	Turns       int    `json:"turns"`
	UniqueUsers int    `json:"unique_users"`
	ToolCalls   int    `json:"tool_calls"`
}

// AnalyzeDailyLogs aggregates the events that happened on targetDate's day
// in targetDate's location.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:            startOfDay.Format("2006-01-02"),
		ToolCallsByName: make(map[string]int),
		PersonaStats:    make(map[string]PersonaStats),
	}

	users := make(map[string]bool)
	personaUsers := make(map[string]map[string]bool)

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		stats.TotalTurns++
		users[event.UserID] = true

		ps := stats.PersonaStats[event.Persona]
		ps.Persona = event.Persona
		ps.Turns++
		if personaUsers[event.Persona] == nil {
			personaUsers[event.Persona] = make(map[string]bool)
		}
		personaUsers[event.Persona][event.UserID] = true

		for _, name := range event.ToolCalls {
			stats.ToolCallsTotal++
			stats.ToolCallsByName[name]++
			ps.ToolCalls++
		}
		stats.PersonaStats[event.Persona] = ps
	}

	for name, ps := range stats.PersonaStats {
		ps.UniqueUsers = len(personaUsers[name])
		stats.PersonaStats[name] = ps
	}
	stats.UniqueUsers = len(users)
	return stats
}

// Summary renders a short plain-text report, busiest persona first.
func (ds *DailyStats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Persona usage for %s: %d turns, %d users, %d tool calls\n",
		ds.Date, ds.TotalTurns, ds.UniqueUsers, ds.ToolCallsTotal)

	personas := make([]PersonaStats, 0, len(ds.PersonaStats))
	for _, ps := range ds.PersonaStats {
		personas = append(personas, ps)
	}
	sort.Slice(personas, func(i, j int) bool {
		if personas[i].Turns != personas[j].Turns {
			return personas[i].Turns > personas[j].Turns
		}
		return personas[i].Persona < personas[j].Persona
	})
	for _, ps := range personas {
		fmt.Fprintf(&b, "- %s: %d turns, %d users", ps.Persona, ps.Turns, ps.UniqueUsers)
		if ps.ToolCalls > 0 {
			fmt.Fprintf(&b, ", %d tool calls", ps.ToolCalls)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

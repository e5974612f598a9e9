package game

import (
	"sort"
	"sync"
)

// Points awarded per match result.
const (
	PointsWin = 3
	PointsTie = 1
)

// StandingsEntry is one rider's record across matches.
type StandingsEntry struct {
	Rider  string `json:"rider"`
	Rank   int    `json:"rank"`
	Played int    `json:"played"`
	Wins   int    `json:"wins"`
	Ties   int    `json:"ties"`
	Losses int    `json:"losses"`
	Points int    `json:"points"`
}

// Standings ranks riders by points over every match an engine has run.
// Riders are keyed by their label, so the same roster slot accumulates
// across restarts. Safe for concurrent use.
type Standings struct {
	mu   sync.RWMutex
	rows map[string]*StandingsEntry
}

// NewStandings creates an empty table.
func NewStandings() *Standings {
	return &Standings{rows: make(map[string]*StandingsEntry)}
}

// Record adds one finished match. winner is ignored when tie is set.
func (s *Standings) Record(riders []string, winner string, tie bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range riders {
		row, ok := s.rows[name]
		if !ok {
			row = &StandingsEntry{Rider: name}
			s.rows[name] = row
		}
		row.Played++
		switch {
		case tie:
			row.Ties++
			row.Points += PointsTie
		case name == winner:
			row.Wins++
			row.Points += PointsWin
		default:
			row.Losses++
		}
	}
}

// sorted returns every row by points, then wins, then name.
// Caller must hold s.mu.
func (s *Standings) sorted() []StandingsEntry {
	out := make([]StandingsEntry, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].Rider < out[j].Rider
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Top returns the n best riders, or all of them when n <= 0.
func (s *Standings) Top(n int) []StandingsEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.sorted()
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Rank returns a rider's 1-based rank, or 0 if unknown.
func (s *Standings) Rank(rider string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.sorted() {
		if row.Rider == rider {
			return row.Rank
		}
	}
	return 0
}

// Len returns the number of riders on the table.
func (s *Standings) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Clear empties the table.
func (s *Standings) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[string]*StandingsEntry)
}

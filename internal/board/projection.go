package board

import (
	"time"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

// Badge is the risk indicator rendered on a card.
type Badge string

const (
	BadgeNone      Badge = "none"
	BadgeSubdued   Badge = "subdued"
	BadgeProminent Badge = "prominent"
)

// RiskBadge maps a risk level to its badge.
func RiskBadge(level domain.RiskLevel) Badge {
	switch level {
	case domain.RiskHigh:
		return BadgeProminent
	case domain.RiskMedium:
		return BadgeSubdued
	default:
		return BadgeNone
	}
}

// Card is a task as rendered on the board.
type Card struct {
	Task       domain.Task `json:"task"`
	Progress   int         `json:"progress"`
	Badge      Badge       `json:"badge"`
	Completing bool        `json:"completing"`
}

// Column is one status bucket.
type Column struct {
	Status domain.Status `json:"status"`
	Cards  []Card        `json:"cards"`
}

// Counts are the board totals.
type Counts struct {
	Total      int `json:"total"`
	ToDo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Done       int `json:"done"`
}

// Board is the projected presentation state.
type Board struct {
	ProjectID domain.ID `json:"project_id"`
	Columns   []Column  `json:"columns"`
	Counts    Counts    `json:"counts"`
	Loaded    bool      `json:"loaded"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
}

// Column returns the column for status, or an empty column.
func (b Board) Column(status domain.Status) Column {
	for _, c := range b.Columns {
		if c.Status == status {
			return c
		}
	}
	return Column{Status: status}
}

// Project maps a snapshot onto the board. It is pure and can be re-derived at
// any time from store state.
func Project(snap Snapshot) Board {
	return project(snap, snap.Tasks)
}

// ProjectFiltered projects only the tasks matching q. Counts still describe
// the whole collection.
func ProjectFiltered(snap Snapshot, q Query) Board {
	return project(snap, Filter(snap.Tasks, q))
}

func project(snap Snapshot, visible []domain.Task) Board {
	b := Board{
		ProjectID: snap.ProjectID,
		Counts:    CountTasks(snap.Tasks),
		Loaded:    snap.Loaded,
		FetchedAt: snap.FetchedAt,
	}

	index := make(map[domain.Status]int, len(domain.Statuses))
	for i, st := range domain.Statuses {
		index[st] = i
		b.Columns = append(b.Columns, Column{Status: st, Cards: []Card{}})
	}

	for _, t := range visible {
		i, ok := index[t.Status]
		if !ok {
			continue
		}
		b.Columns[i].Cards = append(b.Columns[i].Cards, Card{
			Task:       t,
			Progress:   t.DisplayProgress(),
			Badge:      RiskBadge(t.RiskLevel),
			Completing: snap.IsCompleting(t.ID),
		})
	}
	return b
}

// CountTasks tallies tasks per status. Tasks with an unknown status only
// count towards Total.
func CountTasks(tasks []domain.Task) Counts {
	c := Counts{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case domain.StatusToDo:
			c.ToDo++
		case domain.StatusInProgress:
			c.InProgress++
		case domain.StatusDone:
			c.Done++
		}
	}
	return c
}

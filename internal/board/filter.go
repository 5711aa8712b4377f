package board

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

// SortKey orders a filtered task list.
type SortKey string

const (
	SortDefault  SortKey = "default"
	SortTitle    SortKey = "title"
	SortDueDate  SortKey = "dueDate"
	SortPriority SortKey = "priority"
)

// StatusAll disables status filtering.
const StatusAll = "all"

// Query is a filter/sort request over the task collection.
type Query struct {
	// Text matches case-insensitively against title or description.
	Text string
	// Status is an exact status, or "" / StatusAll for every status.
	Status domain.Status
	Sort   SortKey
}

// ParseQuery builds a Query from loosely typed input (query strings, CLI
// flags, tool arguments).
func ParseQuery(text, status, sort string) (Query, error) {
	q := Query{Text: text}

	switch strings.TrimSpace(status) {
	case "", StatusAll:
	default:
		st, ok := domain.ParseStatus(status)
		if !ok {
			return Query{}, fmt.Errorf("%w: unknown status %q", ErrInvalidQuery, status)
		}
		q.Status = st
	}

	key, err := ParseSortKey(sort)
	if err != nil {
		return Query{}, err
	}
	q.Sort = key
	return q, nil
}

// ParseSortKey maps user input to a SortKey. Empty input is SortDefault.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return SortDefault, nil
	case "title":
		return SortTitle, nil
	case "duedate", "due_date", "due":
		return SortDueDate, nil
	case "priority":
		return SortPriority, nil
	}
	return "", fmt.Errorf("%w: unknown sort key %q", ErrInvalidQuery, s)
}

// Filter returns a new slice holding the tasks that match q, in q's order.
// The input slice and its tasks are never modified.
func Filter(tasks []domain.Task, q Query) []domain.Task {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	statusFilter := q.Status != "" && string(q.Status) != StatusAll

	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if statusFilter && t.Status != q.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}
		out = append(out, t)
	}

	switch q.Sort {
	case SortTitle:
		slices.SortStableFunc(out, func(a, b domain.Task) int {
			return strings.Compare(a.Title, b.Title)
		})
	case SortDueDate:
		slices.SortStableFunc(out, compareDueDate)
	case SortPriority:
		slices.SortStableFunc(out, func(a, b domain.Task) int {
			return cmp.Compare(b.PriorityValue(), a.PriorityValue())
		})
	}
	return out
}

// compareDueDate orders ascending with tasks lacking a due date last.
func compareDueDate(a, b domain.Task) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return 0
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	}
	return a.DueDate.Compare(b.DueDate.Time)
}

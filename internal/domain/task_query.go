package domain

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// TimestampLayout renders timestamps with fixed millisecond precision so that
// string comparison agrees with chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

const (
	FieldID        = "id"
	FieldTitle     = "title"
	FieldDetails   = "details"
	FieldCategory  = "category"
	FieldPriority  = "priority"
	FieldDueDate   = "dueDate"
	FieldDate      = "date"
	FieldTime      = "time"
	FieldRepeat    = "repeat"
	FieldStatus    = "status"
	FieldCompleted = "completed"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

var fieldAliases = map[string]string{
	"due_date":   FieldDueDate,
	"created_at": FieldCreatedAt,
	"updated_at": FieldUpdatedAt,
}

// CanonicalField maps snake_case aliases onto the JSON field names.
func CanonicalField(name string) string {
	if canonical, ok := fieldAliases[name]; ok {
		return canonical
	}
	return name
}

// TaskQuery describes the post-read shaping applied by GetAll: equality
// filter, then sort, then limit.
type TaskQuery struct {
	Filter        map[string]any
	SortBy        string
	SortDirection SortDirection
	Limit         int
}

// DefaultTaskQuery sorts newest first, as the task list does.
func DefaultTaskQuery() TaskQuery {
	return TaskQuery{SortBy: FieldCreatedAt, SortDirection: SortDesc}
}

func (q TaskQuery) sortField() string {
	if q.SortBy == "" {
		return FieldCreatedAt
	}
	return CanonicalField(q.SortBy)
}

// Apply filters, sorts and truncates tasks. The input slice is not modified.
func (q TaskQuery) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if q.Matches(&t) {
			out = append(out, t)
		}
	}

	field := q.sortField()
	asc := q.SortDirection == SortAsc
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].SortKey(field), out[j].SortKey(field)
		if asc {
			return a < b
		}
		return a > b
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Matches reports whether every non-nil filter value equals the task's field.
func (q TaskQuery) Matches(t *Task) bool {
	for key, want := range q.Filter {
		if want == nil {
			continue
		}
		got, ok := t.FieldValue(CanonicalField(key))
		if !ok || !valueEquals(got, want) {
			return false
		}
	}
	return true
}

// FieldValue returns the typed value of a named field.
func (t *Task) FieldValue(name string) (any, bool) {
	switch name {
	case FieldID:
		return t.ID, true
	case FieldTitle:
		return t.Title, true
	case FieldDetails:
		return t.Details, true
	case FieldCategory:
		return t.Category, true
	case FieldPriority:
		return string(t.Priority), true
	case FieldDueDate:
		return t.DueDate, true
	case FieldDate:
		return t.Date, true
	case FieldTime:
		return t.Time, true
	case FieldRepeat:
		return t.Repeat, true
	case FieldStatus:
		return string(t.Status), true
	case FieldCompleted:
		return t.Completed, true
	case FieldCreatedAt:
		return t.CreatedAt, true
	case FieldUpdatedAt:
		return t.UpdatedAt, true
	}
	return nil, false
}

// SortKey renders a field for string comparison. Missing, false and zero
// values sort as the empty string.
func (t *Task) SortKey(name string) string {
	v, ok := t.FieldValue(name)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return ""
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(TimestampLayout)
	}
	return ""
}

func valueEquals(got, want any) bool {
	switch g := got.(type) {
	case string:
		w, ok := stringValue(want)
		return ok && g == w
	case bool:
		switch w := want.(type) {
		case bool:
			return g == w
		case string:
			b, err := strconv.ParseBool(w)
			return err == nil && g == b
		}
		return false
	case time.Time:
		switch w := want.(type) {
		case time.Time:
			return g.Equal(w)
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, w)
			return err == nil && g.Equal(parsed)
		}
		return false
	}
	return false
}

func stringValue(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case TaskStatus:
		return string(x), true
	case Priority:
		return string(x), true
	case fmt.Stringer:
		return x.String(), true
	}
	return "", false
}

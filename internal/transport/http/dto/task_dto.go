package dto

import (
	"regexp"
	"strings"
	"time"

	"github.com/taskextreme/backend/internal/domain"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type TaskRequest struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Details   string     `json:"details"`
	Category  string     `json:"category"`
	Priority  string     `json:"priority"`
	DueDate   string     `json:"dueDate"`
	Date      string     `json:"date"`
	Time      string     `json:"time"`
	Repeat    string     `json:"repeat"`
	Status    string     `json:"status"`
	Completed bool       `json:"completed"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func (r *TaskRequest) Validate() []string {
	var errors []string

	if strings.TrimSpace(r.ID) == "" {
		errors = append(errors, "id is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		errors = append(errors, "title is required")
	}
	switch domain.Priority(r.Priority) {
	case "", domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
	default:
		errors = append(errors, "priority must be one of: low, medium, high")
	}
	switch domain.TaskStatus(r.Status) {
	case "", domain.TaskStatusTodo, domain.TaskStatusDone:
	default:
		errors = append(errors, "status must be one of: todo, done")
	}
	if r.DueDate != "" && !dateRe.MatchString(r.DueDate) {
		errors = append(errors, "dueDate must be YYYY-MM-DD")
	}
	if r.Date != "" && !dateRe.MatchString(r.Date) {
		errors = append(errors, "date must be YYYY-MM-DD")
	}

	return errors
}

// ToTask builds the domain task. Status and completed are kept in step: a
// done column implies completed and the reverse.
func (r *TaskRequest) ToTask() *domain.Task {
	task := &domain.Task{
		ID:        strings.TrimSpace(r.ID),
		Title:     strings.TrimSpace(r.Title),
		Details:   r.Details,
		Category:  r.Category,
		Priority:  domain.Priority(r.Priority),
		DueDate:   r.DueDate,
		Date:      r.Date,
		Time:      r.Time,
		Repeat:    r.Repeat,
		Status:    domain.TaskStatus(r.Status),
		Completed: r.Completed,
	}
	if r.CreatedAt != nil {
		task.CreatedAt = *r.CreatedAt
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusTodo
		if task.Completed {
			task.Status = domain.TaskStatusDone
		}
	}
	if task.Status == domain.TaskStatusDone {
		task.Completed = true
	}
	return task
}

package domain

import "time"

type TaskStatus string

const (
	TaskStatusTodo TaskStatus = "todo"
	TaskStatusDone TaskStatus = "done"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task is a single to-do entry. The id is assigned by the caller; the store
// owns CreatedAt and UpdatedAt.
type Task struct {
	ID        string     `gorm:"primaryKey;size:64" json:"id"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Details   string     `gorm:"type:text" json:"details,omitempty"`
	Category  string     `gorm:"size:100;index:idx_tasks_category" json:"category,omitempty"`
	Priority  Priority   `gorm:"size:20;index:idx_tasks_priority" json:"priority,omitempty"`
	DueDate   string     `gorm:"size:10;index:idx_tasks_due_date" json:"dueDate,omitempty"`
	Date      string     `gorm:"size:10" json:"date,omitempty"`
	Time      string     `gorm:"size:10" json:"time,omitempty"`
	Repeat    string     `gorm:"size:20" json:"repeat,omitempty"`
	Status    TaskStatus `gorm:"size:20;index:idx_tasks_status" json:"status,omitempty"`
	Completed bool       `gorm:"index:idx_tasks_completed" json:"completed"`
	CreatedAt time.Time  `gorm:"index:idx_tasks_created_at;autoCreateTime:false" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"index:idx_tasks_updated_at;autoUpdateTime:false" json:"updatedAt"`
}

func (Task) TableName() string {
	return "tasks"
}

// Column returns the current status column, defaulting to todo.
func (t *Task) Column() TaskStatus {
	if t.Status == "" {
		return TaskStatusTodo
	}
	return t.Status
}

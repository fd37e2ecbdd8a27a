package domain

// TemplateTask is the skeleton a template stamps out as a real task.
type TemplateTask struct {
	Title    string   `json:"title"`
	Details  string   `json:"details,omitempty"`
	Category string   `json:"category,omitempty"`
	Priority Priority `json:"priority,omitempty"`
	Time     string   `json:"time,omitempty"`
}

type Template struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Icon   string         `json:"icon,omitempty"`
	Color  string         `json:"color,omitempty"`
	Group  string         `json:"group,omitempty"`
	Repeat string         `json:"repeat,omitempty"`
	Tasks  []TemplateTask `json:"tasks"`
}

const (
	DefaultTemplateIcon   = "📄"
	DefaultTemplateColor  = "#2563eb"
	DefaultTemplateGroup  = "Ungrouped"
	DefaultTemplateRepeat = "none"
)

type TemplateGroup struct {
	Name      string     `json:"name"`
	Templates []Template `json:"templates"`
}

package dto

import (
	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/domain"
)

type TemplateRequest struct {
	Name   string                `json:"name"`
	Icon   string                `json:"icon"`
	Color  string                `json:"color"`
	Group  string                `json:"group"`
	Repeat string                `json:"repeat"`
	Tasks  []domain.TemplateTask `json:"tasks"`
}

func (r *TemplateRequest) ToInput() ports.TemplateInput {
	return ports.TemplateInput{
		Name:   r.Name,
		Icon:   r.Icon,
		Color:  r.Color,
		Group:  r.Group,
		Repeat: r.Repeat,
		Tasks:  r.Tasks,
	}
}

type ApplyTemplateRequest struct {
	Date string `json:"date"`
}

type ApplyTemplateResponse struct {
	Created int           `json:"created"`
	Tasks   []domain.Task `json:"tasks"`
}

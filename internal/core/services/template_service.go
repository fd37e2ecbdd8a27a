package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/infrastructure/notify"
)

const msgTemplateApplied = "Template applied!"

const templateListSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "id": {"type": "string"},
      "name": {"type": "string"},
      "icon": {"type": "string"},
      "color": {"type": "string"},
      "group": {"type": "string"},
      "repeat": {"type": "string"},
      "tasks": {
        "type": "array",
        "items": {
          "type": "object",
          "properties": {
            "title": {"type": "string"},
            "details": {"type": "string"},
            "category": {"type": "string"},
            "priority": {"type": "string"},
            "time": {"type": "string"}
          }
        }
      }
    }
  }
}`

type TemplateServiceConfig struct {
	KV       ports.KeyValueRepository
	Tasks    ports.TaskService
	Notifier ports.Notifier
	Logger   *logger.Logger
	Clock    func() time.Time
}

// TemplateService keeps the template list as one JSON blob in the kv store.
type TemplateService struct {
	kv       ports.KeyValueRepository
	tasks    ports.TaskService
	notifier ports.Notifier
	logger   *logger.Logger
	now      func() time.Time
	schema   *jsonschema.Schema

	mu sync.Mutex
}

func NewTemplateService(cfg TemplateServiceConfig) (*TemplateService, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("templates.json", strings.NewReader(templateListSchema)); err != nil {
		return nil, fmt.Errorf("failed to load template schema: %w", err)
	}
	schema, err := compiler.Compile("templates.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile template schema: %w", err)
	}

	return &TemplateService{
		kv:       cfg.KV,
		tasks:    cfg.Tasks,
		notifier: notify.OrDefault(cfg.Notifier, log),
		logger:   log,
		now:      clock,
		schema:   schema,
	}, nil
}

var _ ports.TemplateService = (*TemplateService)(nil)

func (s *TemplateService) List(ctx context.Context) []domain.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// load reads the blob. Missing or unreadable data yields an empty list.
func (s *TemplateService) load(ctx context.Context) []domain.Template {
	raw, ok, err := s.kv.Get(ctx, domain.KeyTemplates)
	if err != nil {
		s.logger.Warnw("template_load_failed", "error", err)
		return []domain.Template{}
	}
	if !ok || raw == "" {
		return []domain.Template{}
	}
	var templates []domain.Template
	if err := json.Unmarshal([]byte(raw), &templates); err != nil {
		s.logger.Warnw("template_parse_failed", "error", err)
		return []domain.Template{}
	}
	if templates == nil {
		templates = []domain.Template{}
	}
	return templates
}

func (s *TemplateService) store(ctx context.Context, templates []domain.Template) error {
	data, err := json.Marshal(templates)
	if err != nil {
		return fmt.Errorf("failed to encode templates: %w", err)
	}
	if err := s.kv.Set(ctx, domain.KeyTemplates, string(data)); err != nil {
		s.logger.Errorw("template_store_failed", "count", len(templates), "error", err)
		return err
	}
	return nil
}

// Grouped buckets templates by group in first-seen order.
func (s *TemplateService) Grouped(ctx context.Context) []domain.TemplateGroup {
	templates := s.List(ctx)
	index := make(map[string]int)
	groups := []domain.TemplateGroup{}
	for _, t := range templates {
		name := t.Group
		if name == "" {
			name = domain.DefaultTemplateGroup
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, domain.TemplateGroup{Name: name})
		}
		groups[i].Templates = append(groups[i].Templates, t)
	}
	return groups
}

func (s *TemplateService) Get(ctx context.Context, id string) (*domain.Template, error) {
	for _, t := range s.List(ctx) {
		if t.ID == id {
			found := t
			return &found, nil
		}
	}
	return nil, ErrTemplateNotFound
}

func (s *TemplateService) Create(ctx context.Context, input ports.TemplateInput) (*domain.Template, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrTemplateInvalidInput)
	}

	tpl := domain.Template{
		ID:     uuid.NewString(),
		Name:   name,
		Icon:   orDefault(input.Icon, domain.DefaultTemplateIcon),
		Color:  orDefault(input.Color, domain.DefaultTemplateColor),
		Group:  orDefault(strings.TrimSpace(input.Group), domain.DefaultTemplateGroup),
		Repeat: orDefault(input.Repeat, domain.DefaultTemplateRepeat),
		Tasks:  cleanTasks(input.Tasks),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	templates := append(s.load(ctx), tpl)
	if err := s.store(ctx, templates); err != nil {
		return nil, err
	}
	s.logger.Infow("template_created", "id", tpl.ID, "name", tpl.Name, "tasks", len(tpl.Tasks))
	return &tpl, nil
}

// Update merges input into the template: non-empty fields replace, and a
// non-nil task list replaces the skeletons.
func (s *TemplateService) Update(ctx context.Context, id string, input ports.TemplateInput) (*domain.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates := s.load(ctx)
	for i := range templates {
		if templates[i].ID != id {
			continue
		}
		t := &templates[i]
		if name := strings.TrimSpace(input.Name); name != "" {
			t.Name = name
		}
		if input.Icon != "" {
			t.Icon = input.Icon
		}
		if input.Color != "" {
			t.Color = input.Color
		}
		if g := strings.TrimSpace(input.Group); g != "" {
			t.Group = g
		}
		if input.Repeat != "" {
			t.Repeat = input.Repeat
		}
		if input.Tasks != nil {
			t.Tasks = cleanTasks(input.Tasks)
		}
		if err := s.store(ctx, templates); err != nil {
			return nil, err
		}
		s.logger.Infow("template_updated", "id", id)
		updated := *t
		return &updated, nil
	}
	return nil, ErrTemplateNotFound
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates := s.load(ctx)
	kept := templates[:0]
	for _, t := range templates {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(templates) {
		return ErrTemplateNotFound
	}
	if err := s.store(ctx, kept); err != nil {
		return err
	}
	s.logger.Infow("template_deleted", "id", id)
	return nil
}

func (s *TemplateService) Duplicate(ctx context.Context, id string) (*domain.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates := s.load(ctx)
	for _, t := range templates {
		if t.ID != id {
			continue
		}
		dup := t
		dup.ID = uuid.NewString()
		dup.Name = t.Name + " (Copy)"
		dup.Tasks = append([]domain.TemplateTask(nil), t.Tasks...)
		if err := s.store(ctx, append(templates, dup)); err != nil {
			return nil, err
		}
		s.logger.Infow("template_duplicated", "source", id, "id", dup.ID)
		return &dup, nil
	}
	return nil, ErrTemplateNotFound
}

// Export renders the list as indented JSON, the same format Import takes.
func (s *TemplateService) Export(ctx context.Context) ([]byte, error) {
	data, err := json.MarshalIndent(s.List(ctx), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode templates: %w", err)
	}
	return data, nil
}

// Import replaces the whole list. Anything other than a JSON array of
// template objects fails with ErrImportFormat and changes nothing.
func (s *TemplateService) Import(ctx context.Context, data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warnw("template_import_rejected", "reason", "invalid_json", "error", err)
		return fmt.Errorf("%w: %v", ErrImportFormat, err)
	}
	if err := s.schema.Validate(raw); err != nil {
		s.logger.Warnw("template_import_rejected", "reason", "schema", "error", err)
		return fmt.Errorf("%w: %v", ErrImportFormat, err)
	}

	var templates []domain.Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return fmt.Errorf("%w: %v", ErrImportFormat, err)
	}
	for i := range templates {
		if templates[i].ID == "" {
			templates[i].ID = uuid.NewString()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store(ctx, templates); err != nil {
		return err
	}
	s.logger.Infow("template_imported", "count", len(templates))
	return nil
}

// Apply stamps out one task per skeleton on the given date (today when
// empty) and saves them through the task service.
func (s *TemplateService) Apply(ctx context.Context, id string, date string) ([]domain.Task, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if date == "" {
		date = s.now().Format("2006-01-02")
	}

	created := make([]domain.Task, 0, len(tpl.Tasks))
	for _, skel := range tpl.Tasks {
		task := &domain.Task{
			ID:        uuid.NewString(),
			Title:     skel.Title,
			Details:   skel.Details,
			Category:  skel.Category,
			Priority:  skel.Priority,
			Time:      skel.Time,
			Date:      date,
			Repeat:    tpl.Repeat,
			Status:    domain.TaskStatusTodo,
			Completed: false,
		}
		saved, err := s.tasks.SaveTask(ctx, task)
		if err != nil {
			s.logger.Errorw("template_apply_failed", "id", id, "task", task.ID, "error", err)
			return created, err
		}
		created = append(created, *saved)
	}

	s.logger.Infow("template_applied", "id", id, "date", date, "tasks", len(created))
	s.notifier.Notify(msgTemplateApplied, domain.SeveritySuccess)
	return created, nil
}

func cleanTasks(tasks []domain.TemplateTask) []domain.TemplateTask {
	out := make([]domain.TemplateTask, 0, len(tasks))
	for _, t := range tasks {
		t.Title = strings.TrimSpace(t.Title)
		if t.Title == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

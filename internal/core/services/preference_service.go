package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/domain"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
)

const DefaultTheme = "light"

type PreferenceServiceConfig struct {
	KV     ports.KeyValueRepository
	Logger *logger.Logger
}

// PreferenceService persists small UI settings as JSON values in the kv
// store.
type PreferenceService struct {
	kv     ports.KeyValueRepository
	logger *logger.Logger

	// checkedMu guards read-modify-write of the checked map.
	checkedMu sync.Mutex
}

func NewPreferenceService(cfg PreferenceServiceConfig) *PreferenceService {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &PreferenceService{kv: cfg.KV, logger: log}
}

var (
	_ ports.PreferenceService = (*PreferenceService)(nil)
	_ ports.CheckedTracker    = (*PreferenceService)(nil)
)

func (s *PreferenceService) Theme(ctx context.Context) (string, error) {
	theme := DefaultTheme
	if _, err := s.get(ctx, domain.KeyTheme, &theme); err != nil {
		return "", err
	}
	return theme, nil
}

func (s *PreferenceService) SetTheme(ctx context.Context, theme string) error {
	if theme == "" {
		return fmt.Errorf("%w: theme is empty", ErrPreferenceInvalid)
	}
	return s.set(ctx, domain.KeyTheme, theme)
}

func (s *PreferenceService) View(ctx context.Context) (domain.ViewMode, error) {
	view := domain.ViewList
	if _, err := s.get(ctx, domain.KeyPreferredView, &view); err != nil {
		return "", err
	}
	if !view.Valid() {
		return domain.ViewList, nil
	}
	return view, nil
}

func (s *PreferenceService) SetView(ctx context.Context, view domain.ViewMode) error {
	if !view.Valid() {
		return fmt.Errorf("%w: unknown view %q", ErrPreferenceInvalid, view)
	}
	return s.set(ctx, domain.KeyPreferredView, view)
}

func (s *PreferenceService) Checked(ctx context.Context) (map[string]bool, error) {
	checked := map[string]bool{}
	if _, err := s.get(ctx, domain.KeyChecked, &checked); err != nil {
		return nil, err
	}
	if checked == nil {
		checked = map[string]bool{}
	}
	return checked, nil
}

func (s *PreferenceService) SetChecked(ctx context.Context, checked map[string]bool) error {
	if checked == nil {
		checked = map[string]bool{}
	}
	s.checkedMu.Lock()
	defer s.checkedMu.Unlock()
	return s.set(ctx, domain.KeyChecked, checked)
}

// TrackChecked marks a done task as checked and unchecks any other.
func (s *PreferenceService) TrackChecked(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return nil
	}
	done := task.Status == domain.TaskStatusDone || task.Completed
	return s.updateChecked(ctx, task.ID, done)
}

// ForgetChecked drops a deleted task from the checked map.
func (s *PreferenceService) ForgetChecked(ctx context.Context, id string) error {
	return s.updateChecked(ctx, id, false)
}

func (s *PreferenceService) updateChecked(ctx context.Context, id string, done bool) error {
	s.checkedMu.Lock()
	defer s.checkedMu.Unlock()

	checked := map[string]bool{}
	if _, err := s.get(ctx, domain.KeyChecked, &checked); err != nil {
		return err
	}
	if checked == nil {
		checked = map[string]bool{}
	}
	v, present := checked[id]
	if (done && v) || (!done && !present) {
		return nil
	}
	if done {
		checked[id] = true
	} else {
		delete(checked, id)
	}
	return s.set(ctx, domain.KeyChecked, checked)
}

// get decodes the stored value into dst and leaves dst untouched when the
// key is missing or holds malformed JSON.
func (s *PreferenceService) get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warnw("preference_parse_failed", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *PreferenceService) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return err
	}
	s.logger.Infow("preference_updated", "key", key)
	return nil
}

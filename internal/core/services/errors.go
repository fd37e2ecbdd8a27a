package services

import "errors"

// Task errors
var (
	ErrTaskInvalidInput = errors.New("task: invalid input")
)

// Queue errors
var (
	ErrQueueProcessing = errors.New("queue: replay halted")
)

// Template errors
var (
	ErrTemplateNotFound     = errors.New("template: not found")
	ErrTemplateInvalidInput = errors.New("template: invalid input")
	ErrImportFormat         = errors.New("template: import payload must be a JSON array of templates")
)

// Preference errors
var (
	ErrPreferenceInvalid = errors.New("preference: invalid value")
)

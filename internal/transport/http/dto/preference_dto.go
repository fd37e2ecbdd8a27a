package dto

import "github.com/taskextreme/backend/internal/domain"

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type ViewRequest struct {
	View domain.ViewMode `json:"view"`
}

type ConnectivityEventRequest struct {
	Online *bool `json:"online"`
}

type PendingResponse struct {
	Count      int                       `json:"count"`
	Operations []domain.PendingOperation `json:"operations"`
}

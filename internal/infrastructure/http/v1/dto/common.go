// Package dto holds the request and response bodies of the v1 API. Field
// names follow the Portuguese column names the web client already uses.
package dto

import "compras/internal/domain/workflow"

// ListResponse is a page of a list endpoint.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// TransitionRequest moves a requisition, quote cycle or order to another
// workflow state. Payload is stored with the workflow log entry.
type TransitionRequest struct {
	To      workflow.State `json:"to" binding:"required"`
	Payload map[string]any `json:"payload"`
}

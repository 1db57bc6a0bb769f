package httpdto

import "github.com/google/uuid"

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(tag string, detail string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   tag,
		Detail:  detail,
	}
}

// ConflictResponse carries the ids colliding with the proposed range.
type ConflictResponse struct {
	Success     bool        `json:"success"`
	Error       string      `json:"error"`
	ConflictIDs []uuid.UUID `json:"conflict_ids"`
}

func NewConflictResponse(ids []uuid.UUID) ConflictResponse {
	return ConflictResponse{
		Success:     false,
		Error:       "conflict",
		ConflictIDs: ids,
	}
}

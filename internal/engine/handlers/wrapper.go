package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"tactics-sim/pkg/api"
)

var (
	ErrBadPayload     = errors.New("invalid payload format")
	ErrInvalidPayload = errors.New("payload validation failed")
)

// TypedHandlerFunc - хендлер команды с уже разобранным payload.
type TypedHandlerFunc[T any] func(ctx Context, payload T) (Result, error)

// EmptyHandlerFunc - хендлер команды без данных (WAIT, ADMIN_HEAL).
type EmptyHandlerFunc func(ctx Context) (Result, error)

// WithPayload разбирает JSON в T и, если T умеет, валидирует его.
// Пустой payload разбирается как пустой объект.
func WithPayload[T any](handler TypedHandlerFunc[T]) HandlerFunc {
	return func(ctx Context, raw json.RawMessage) (Result, error) {
		var payload T
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return Result{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
			}
		}

		if v, ok := any(payload).(api.Validator); ok {
			if err := v.Validate(); err != nil {
				return Result{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
		}
		return handler(ctx, payload)
	}
}

// WithEmptyPayload игнорирует присланные данные.
func WithEmptyPayload(handler EmptyHandlerFunc) HandlerFunc {
	return func(ctx Context, _ json.RawMessage) (Result, error) {
		return handler(ctx)
	}
}

// Package service holds the operations the command listener and the HTTP
// surface call into. Failures come back as Result values carrying a command
// result code, never as raw errors.
package service

import (
	"context"
	"errors"
	"fmt"

	"zygl/pkg/protocol"
)

// Result is the outcome of a service call.
type Result[T any] struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Code    protocol.CommandResult `json:"code"`
	Data    T                      `json:"data"`
}

func succeed[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Message: message, Code: protocol.ResultSuccess, Data: data}
}

func fail[T any](code protocol.CommandResult, format string, args ...any) Result[T] {
	return Result[T]{Code: code, Message: fmt.Sprintf(format, args...)}
}

// failFromError classifies err: deadline expiry maps to Timeout, everything
// else to Failed.
func failFromError[T any](prefix string, err error) Result[T] {
	if errors.Is(err, context.DeadlineExceeded) {
		return fail[T](protocol.ResultTimeout, "%s: timed out: %v", prefix, err)
	}
	return fail[T](protocol.ResultFailed, "%s: %v", prefix, err)
}

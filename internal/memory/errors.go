// Package memory содержит общие ошибки низкоуровневых структур памяти
// (упакованные массивы, пулы слотов).
package memory

import "errors"

// Ошибки нарушения контракта. Все они восстанавливаемые: структура остаётся
// в прежнем состоянии, вызывающий код решает, что делать дальше.
var (
	ErrIndexOutOfBounds = NewError("index out of bounds")
	ErrAlreadyAllocated = NewError("buffer already allocated")
	ErrNotAllocated     = NewError("buffer not allocated")
	ErrPoolExhausted    = NewError("pool exhausted")
	ErrInvalidWidth     = NewError("invalid bit width")
	ErrReleased         = NewError("buffer released")
)

// Error представляет ошибку работы с памятью.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(message string) *Error {
	return &Error{Message: message}
}

// IsContractViolation проверяет, является ли ошибка нарушением контракта
// структуры памяти (а не, например, ошибкой ввода-вывода).
func IsContractViolation(err error) bool {
	var memErr *Error
	return errors.As(err, &memErr)
}

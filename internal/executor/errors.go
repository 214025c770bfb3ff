package executor

import (
	"context"
	"errors"
	"fmt"
)

// Ошибки executor'ов.
var (
	// ErrUnknownTaskType — нет executor'а для данного типа task.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrBadPayload — payload не проходит валидацию executor'а.
	ErrBadPayload = errors.New("bad payload")
)

// Class — класс ошибки выполнения. По классу планировщик решает,
// делать ли retry.
type Class string

const (
	// ClassTransient — сетевая/серверная ошибка, retry имеет смысл.
	ClassTransient Class = "transient"

	// ClassValidation — payload отвергнут, retry бессмысленен:
	// task сразу терминально FAILED, без backoff.
	ClassValidation Class = "validation"

	// ClassAborted — попытка прервана отменой batch'а.
	// Не расходует retry-бюджет, task переходит в CANCELLED.
	ClassAborted Class = "aborted"

	// ClassUnknown — ошибка нераспознанной формы. Консервативно
	// считается retryable, но по-прежнему ограничена max_attempts.
	ClassUnknown Class = "unknown"
)

// Error — классифицированная ошибка выполнения.
type Error struct {
	Class Class
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient оборачивает ошибку как retryable.
func Transient(err error) error {
	return &Error{Class: ClassTransient, Err: err}
}

// Validation оборачивает ошибку как non-retryable.
func Validation(err error) error {
	return &Error{Class: ClassValidation, Err: err}
}

// Aborted оборачивает ошибку как вызванную отменой.
func Aborted(err error) error {
	return &Error{Class: ClassAborted, Err: err}
}

// ClassOf определяет класс произвольной ошибки.
//
// Неклассифицированный context.Canceled считается отменой: это
// единственный способ, которым abort-сигнал доходит до executor'а.
// context.DeadlineExceeded — собственный таймаут executor'а, то есть
// transient. Всё остальное — unknown.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	if errors.Is(err, context.Canceled) {
		return ClassAborted
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	return ClassUnknown
}

// IsRetryable сообщает, имеет ли смысл повторять попытку.
func IsRetryable(err error) bool {
	switch ClassOf(err) {
	case ClassTransient, ClassUnknown:
		return true
	default:
		return false
	}
}

// IsAbort сообщает, вызвана ли ошибка отменой.
func IsAbort(err error) bool {
	return ClassOf(err) == ClassAborted
}

package waiter

import "context"

type outcomeState int

const (
	statePending outcomeState = iota
	stateReady
	stateFatal
)

// Outcome is the result of one predicate evaluation: Pending (not yet),
// Ready with a value, or Fatal with an error
type Outcome[T any] struct {
	state outcomeState
	value T
	err   error
}

// Pending reports that the condition does not hold yet
func Pending[T any]() Outcome[T] {
	return Outcome[T]{state: statePending}
}

// Ready reports that the condition holds and carries its value
func Ready[T any](v T) Outcome[T] {
	return Outcome[T]{state: stateReady, value: v}
}

// Fatal reports a failure. Failures of an ignored kind are downgraded to
// Pending by Until.
func Fatal[T any](err error) Outcome[T] {
	return Outcome[T]{state: stateFatal, err: err}
}

// From converts a (value, ok, err) triple into an Outcome
func From[T any](v T, ok bool, err error) Outcome[T] {
	switch {
	case err != nil:
		return Fatal[T](err)
	case ok:
		return Ready(v)
	default:
		return Pending[T]()
	}
}

func (o Outcome[T]) IsPending() bool { return o.state == statePending }
func (o Outcome[T]) IsReady() bool   { return o.state == stateReady }
func (o Outcome[T]) IsFatal() bool   { return o.state == stateFatal }

// Value returns the carried value; zero unless Ready
func (o Outcome[T]) Value() T { return o.value }

// Err returns the carried error; nil unless Fatal
func (o Outcome[T]) Err() error { return o.err }

// Predicate evaluates a condition once against the live page
type Predicate[T any] func(ctx context.Context) Outcome[T]

package domain

// Outcome is the terminal result of one executor call: either a success
// carrying a value, or a classified failure with the attempt count. It is the
// only shape that crosses the core boundary to callers.
type Outcome[T any] struct {
	Value   T
	Failure *OutcomeFailure
}

// OutcomeFailure describes a terminal failure.
type OutcomeFailure struct {
	Classification Classification
	Message        string
	Attempts       int
}

// Succeed builds a success outcome.
func Succeed[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Fail builds a failure outcome.
func Fail[T any](c Classification, msg string, attempts int) Outcome[T] {
	return Outcome[T]{Failure: &OutcomeFailure{
		Classification: c,
		Message:        msg,
		Attempts:       attempts,
	}}
}

// OK reports whether the outcome is a success.
func (o Outcome[T]) OK() bool { return o.Failure == nil }

package domain

// Class is the retry decision for a classified failure.
type Class int

const (
	// ClassPermanent failures recur identically on retry and are never retried.
	ClassPermanent Class = iota
	// ClassTransient failures are expected to succeed if retried unchanged.
	ClassTransient
)

func (c Class) String() string {
	if c == ClassTransient {
		return "transient"
	}
	return "permanent"
}

// Classification is the result of classifying one failure. Code is the
// extracted diagnostic code, empty when the failure carried none.
// NetworkLevel is set when the transient decision came from the failure's
// kind rather than a structured code.
type Classification struct {
	Class        Class
	Code         string
	NetworkLevel bool
}

// Transient reports whether a retry may succeed.
func (c Classification) Transient() bool { return c.Class == ClassTransient }

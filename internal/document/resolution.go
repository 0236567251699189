package document

// ResolutionState describes the outcome of resolving a single reference.
type ResolutionState string

const (
	// StateResolved means the target document was fetched.
	StateResolved ResolutionState = "resolved"
	// StateMissing means the target identifier no longer exists in its
	// collection. Distinct from an empty or absent field.
	StateMissing ResolutionState = "missing"
	// StateTimedOut means the lookup for this reference exceeded the
	// caller-supplied bound.
	StateTimedOut ResolutionState = "timedOut"
	// StateAlreadyExpanding means the target is already being expanded
	// higher up the same resolution chain (reference cycle).
	StateAlreadyExpanding ResolutionState = "alreadyExpanding"
)

// Resolution replaces a reference identifier in an expanded document. The
// caller can always distinguish "never existed" (StateMissing) from an
// empty field, and a cycle stop from a fetch failure.
type Resolution struct {
	State ResolutionState `json:"state" bson:"state"`
	Ref   Ref             `json:"ref" bson:"ref"`
	Doc   Document        `json:"doc,omitempty" bson:"doc,omitempty"`
}

package authc

// Status classifies a non-error authentication outcome.
type Status int

const (
	// StatusComplete means every required factor is satisfied.
	StatusComplete Status = iota

	// StatusContinue means the token verified but the account requires
	// another factor. Not a failure: the caller should solicit the next
	// tier's token and resubmit it with the returned identifiers.
	StatusContinue
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// Result is the outcome of a successful Authenticate call.
type Result struct {
	Status  Status
	Account *Account

	// Identifiers carries the claims accumulated so far. On StatusContinue
	// the caller must thread it back in with the next token.
	Identifiers *Identifiers
}

// Complete reports whether the login sequence finished.
func (r *Result) Complete() bool { return r.Status == StatusComplete }

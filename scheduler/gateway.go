package scheduler

// Outcome classifies the result of one reversal call against the platform.
type Outcome int

const (
	// OutcomeSuccess means the reversal was applied.
	OutcomeSuccess Outcome = iota
	// OutcomeNotFound means the target state already matches the desired
	// outcome (ban gone, role absent, member left). Treated as success so a
	// duplicate fire exits cleanly.
	OutcomeNotFound
	// OutcomeForbidden means the bot lacks permission or sits below the role
	// in the hierarchy. The condition may change later, so it is retried on a
	// long fixed interval rather than dropped.
	OutcomeForbidden
	// OutcomeRateLimited covers rate limiting and transient I/O failures.
	OutcomeRateLimited
	// OutcomeError is anything unexpected.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "error"
	}
}

// Result carries the classified outcome plus the underlying error, if any.
type Result struct {
	Outcome Outcome
	Err     error
}

// ActionGateway performs the three reversal actions against the platform.
// Implementations classify platform failures into Outcomes; the dispatcher
// never inspects raw platform errors.
type ActionGateway interface {
	RemoveMute(guildID, userID uint64) Result
	RemoveBan(guildID, userID uint64) Result
	RemoveRole(guildID, userID, roleID uint64) Result
}

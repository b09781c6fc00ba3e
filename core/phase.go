package core

// Phase identifies a point in the execution lifecycle. Phases advance in
// declaration order; the pipeline driver never visits them out of order
// except through the defined error-recovery jumps.
type Phase int

const (
	// PhaseBeforeExecution is the start of an execution, before anything else.
	PhaseBeforeExecution Phase = iota
	// PhaseBeforeSerialization precedes marshalling of the modeled request.
	PhaseBeforeSerialization
	// PhaseAfterSerialization follows creation of the transport request.
	PhaseAfterSerialization
	// PhaseBeforeRetryLoop is the last once-per-execution point before attempts begin.
	PhaseBeforeRetryLoop
	// PhaseBeforeAttempt is the start of one attempt.
	PhaseBeforeAttempt
	// PhaseBeforeSigning precedes signing of the transport request.
	PhaseBeforeSigning
	// PhaseAfterSigning follows signing of the transport request.
	PhaseAfterSigning
	// PhaseBeforeTransmit precedes transmission of the transport request.
	PhaseBeforeTransmit
	// PhaseAfterTransmit follows receipt of a transport response.
	PhaseAfterTransmit
	// PhaseBeforeDeserialization precedes unmarshalling of the transport response.
	PhaseBeforeDeserialization
	// PhaseAfterDeserialization follows production of the modeled response.
	PhaseAfterDeserialization
	// PhaseBeforeAttemptCompletion is the end of one attempt, before its outcome is final.
	PhaseBeforeAttemptCompletion
	// PhaseAfterAttempt is the end of one attempt.
	PhaseAfterAttempt
	// PhaseBeforeCompletion is the end of the execution, before the outcome is final.
	PhaseBeforeCompletion
	// PhaseAfterExecution is the end of the execution.
	PhaseAfterExecution
)

// String returns the canonical snake_case phase name.
func (p Phase) String() string {
	switch p {
	case PhaseBeforeExecution:
		return "before_execution"
	case PhaseBeforeSerialization:
		return "before_serialization"
	case PhaseAfterSerialization:
		return "after_serialization"
	case PhaseBeforeRetryLoop:
		return "before_retry_loop"
	case PhaseBeforeAttempt:
		return "before_attempt"
	case PhaseBeforeSigning:
		return "before_signing"
	case PhaseAfterSigning:
		return "after_signing"
	case PhaseBeforeTransmit:
		return "before_transmit"
	case PhaseAfterTransmit:
		return "after_transmit"
	case PhaseBeforeDeserialization:
		return "before_deserialization"
	case PhaseAfterDeserialization:
		return "after_deserialization"
	case PhaseBeforeAttemptCompletion:
		return "before_attempt_completion"
	case PhaseAfterAttempt:
		return "after_attempt"
	case PhaseBeforeCompletion:
		return "before_completion"
	case PhaseAfterExecution:
		return "after_execution"
	default:
		return "unknown"
	}
}

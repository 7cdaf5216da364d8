package listener

// Phase is the lifecycle state of a market listener.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseResolving
	PhaseLoadingMetadata
	PhaseSubscribing
	PhaseWatching
	PhaseStopped
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseResolving:
		return "resolving"
	case PhaseLoadingMetadata:
		return "loading_metadata"
	case PhaseSubscribing:
		return "subscribing"
	case PhaseWatching:
		return "watching"
	case PhaseStopped:
		return "stopped"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

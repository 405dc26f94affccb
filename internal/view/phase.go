// Package view holds the two live panels of the dashboard: the budget
// summary of one user and the list of every record. A view is mounted
// against a store, owns exactly one live subscription while mounted and
// releases it on Unmount.
package view

// Phase is what a panel renders. Exactly one phase holds at a time.
type Phase int

const (
	PhaseInert Phase = iota
	PhaseLoading
	PhaseError
	PhaseEmpty
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseInert:
		return "inert"
	case PhaseLoading:
		return "loading"
	case PhaseError:
		return "error"
	case PhaseEmpty:
		return "empty"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Lifecycle tracks the record subscription of one mount:
// Unsubscribed -> Subscribing -> {Live, Failed}. Failed is terminal.
type Lifecycle int

const (
	Unsubscribed Lifecycle = iota
	Subscribing
	Live
	Failed
)

func (l Lifecycle) String() string {
	switch l {
	case Unsubscribed:
		return "unsubscribed"
	case Subscribing:
		return "subscribing"
	case Live:
		return "live"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// User-visible messages.
const (
	MsgLoading       = "Loading..."
	MsgRecordsFailed = "Failed to load budget records."
	MsgBudgetFailed  = "Failed to load user budget."
	MsgNoRecords     = "No records available. Please add some budget records."
	SummaryTitle     = "Budget Summary"
	RecordsTitle     = "All Records"
)

// phaseOf resolves the panel phase. The order of the checks is the render
// precedence: inert, loading, error, empty, ready.
func phaseOf(inert, loading bool, errMsg string, records int) Phase {
	switch {
	case inert:
		return PhaseInert
	case loading:
		return PhaseLoading
	case errMsg != "":
		return PhaseError
	case records == 0:
		return PhaseEmpty
	default:
		return PhaseReady
	}
}

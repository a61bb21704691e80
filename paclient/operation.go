package paclient

type OperationState int

const (
	OperationRunning OperationState = iota
	OperationDone
	OperationCancelled
)

func (s OperationState) String() string {
	switch s {
	case OperationRunning:
		return "running"
	case OperationDone:
		return "done"
	case OperationCancelled:
		return "cancelled"
	}
	return "invalid"
}

// An Operation tracks one outstanding request. All methods must be called
// with the loop lock held.
type Operation struct {
	state OperationState
}

// NewOperation returns a running operation. It is exported for Context
// implementations other than the one in this package.
func NewOperation() *Operation {
	return &Operation{}
}

func (o *Operation) State() OperationState {
	return o.state
}

// Complete marks the operation done. It reports false if the operation was
// no longer running, in which case its callback must not be invoked.
func (o *Operation) Complete() bool {
	if o.state != OperationRunning {
		return false
	}
	o.state = OperationDone
	return true
}

// Cancel stops the operation's callback from being invoked.
func (o *Operation) Cancel() {
	if o.state == OperationRunning {
		o.state = OperationCancelled
	}
}

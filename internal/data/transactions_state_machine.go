package data

import (
	"fmt"
	"strings"
)

type TransactionStatus string

const (
	PendingTransactionStatus      TransactionStatus = "PENDING"
	InitializedTransactionStatus  TransactionStatus = "INITIALIZED"
	PaidTransactionStatus         TransactionStatus = "PAID"
	CompletedTransactionStatus    TransactionStatus = "COMPLETED"
	PayoutFailedTransactionStatus TransactionStatus = "PAYOUT_FAILED"
)

// Validate validates the transaction status
func (status TransactionStatus) Validate() error {
	switch TransactionStatus(strings.ToUpper(string(status))) {
	case PendingTransactionStatus, InitializedTransactionStatus, PaidTransactionStatus,
		CompletedTransactionStatus, PayoutFailedTransactionStatus:
		return nil
	default:
		return fmt.Errorf("invalid transaction status: %s", status)
	}
}

// TransitionTo transitions the transaction status to the target state
func (status TransactionStatus) TransitionTo(targetState TransactionStatus) error {
	return TransactionStateMachineWithInitialState(status).TransitionTo(targetState.State())
}

// IsTerminal reports whether the status is a terminal state from the engine's perspective.
func (status TransactionStatus) IsTerminal() bool {
	return status == CompletedTransactionStatus || status == PayoutFailedTransactionStatus
}

// TransactionStateMachineWithInitialState returns a state machine for Transactions initialized with the given state
func TransactionStateMachineWithInitialState(initialState TransactionStatus) *StateMachine {
	transitions := []StateTransition{
		{From: PendingTransactionStatus.State(), To: InitializedTransactionStatus.State()},      // payer opened the payment link
		{From: InitializedTransactionStatus.State(), To: PaidTransactionStatus.State()},         // provider confirmed clearance
		{From: PendingTransactionStatus.State(), To: PaidTransactionStatus.State()},             // provider confirmed clearance before initialization was recorded
		{From: PaidTransactionStatus.State(), To: CompletedTransactionStatus.State()},           // payout settled downstream
		{From: PaidTransactionStatus.State(), To: PayoutFailedTransactionStatus.State()},        // payout failed downstream
		{From: PayoutFailedTransactionStatus.State(), To: CompletedTransactionStatus.State()},   // payout retried downstream and settled
		{From: PendingTransactionStatus.State(), To: PayoutFailedTransactionStatus.State()},     // transaction expired unconfirmed
	}

	return NewStateMachine(initialState.State(), transitions)
}

// TransactionStatuses returns a list of all possible transaction statuses
func TransactionStatuses() []TransactionStatus {
	return []TransactionStatus{PendingTransactionStatus, InitializedTransactionStatus, PaidTransactionStatus, CompletedTransactionStatus, PayoutFailedTransactionStatus}
}

// ToTransactionStatus converts a string to a TransactionStatus
func ToTransactionStatus(s string) (TransactionStatus, error) {
	err := TransactionStatus(s).Validate()
	if err != nil {
		return "", err
	}

	return TransactionStatus(strings.ToUpper(s)), nil
}

func (status TransactionStatus) State() State {
	return State(status)
}

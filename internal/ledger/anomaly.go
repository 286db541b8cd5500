package ledger

// AnomalyCode identifies a non-terminal problem found while building a report
type AnomalyCode string

const (
	// AnomalyOrphanDataAssumed means postings were dropped because their
	// parent transaction could not be found in the supplied set.
	AnomalyOrphanDataAssumed AnomalyCode = "orphan_data_assumed"
	// AnomalyReconciliationMismatch means total movements and the total
	// represented-by figure disagree by more than a penny.
	AnomalyReconciliationMismatch AnomalyCode = "reconciliation_mismatch"
	// AnomalyUnattributedPayment means a distribution posting could not be
	// matched to any creditor.
	AnomalyUnattributedPayment AnomalyCode = "unattributed_payment"
	// AnomalyTrialBalanceUnbalanced means total debits and credits differ.
	AnomalyTrialBalanceUnbalanced AnomalyCode = "trial_balance_unbalanced"
)

// Anomaly is a warning attached to an otherwise usable report
type Anomaly struct {
	Code    AnomalyCode `json:"code"`
	Message string      `json:"message"`
}

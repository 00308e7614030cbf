package domain

type BillStatus string

const (
	BillPaid      BillStatus = "PAID"
	BillCredit    BillStatus = "CREDIT"
	BillPartial   BillStatus = "PARTIAL"
	BillCancelled BillStatus = "CANCELLED"
)

// billTransitions lists every post-creation status change a bill may take.
var billTransitions = map[BillStatus][]BillStatus{
	BillPaid:   {BillCancelled},
	BillCredit: {BillCancelled},
}

func (s BillStatus) IsValid() bool {
	switch s {
	case BillPaid, BillCredit, BillPartial, BillCancelled:
		return true
	}
	return false
}

func (s BillStatus) CanTransitionTo(next BillStatus) bool {
	for _, allowed := range billTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StatusFor is the status a freshly recorded bill takes for its payment mode.
func StatusFor(mode PaymentMode) BillStatus {
	if mode == PaymentCredit {
		return BillCredit
	}
	return BillPaid
}

package types

// InvoiceStatus is the status of a derived invoice view.
type InvoiceStatus string

const (
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusOpen  InvoiceStatus = "open"
	InvoiceStatusVoid  InvoiceStatus = "void"
	InvoiceStatusDraft InvoiceStatus = "draft"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

// InvoiceStatusFromTransaction maps a ledger row's status to the status of
// the invoice projected from it.
func InvoiceStatusFromTransaction(status TransactionStatus) InvoiceStatus {
	switch status {
	case TransactionStatusSuccess:
		return InvoiceStatusPaid
	case TransactionStatusPending:
		return InvoiceStatusOpen
	case TransactionStatusFailed, TransactionStatusRefunded:
		return InvoiceStatusVoid
	default:
		return InvoiceStatusDraft
	}
}

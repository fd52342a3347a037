package shared

import "fmt"

// ExportLockKey builds the redis key guarding the export of one invoice.
func ExportLockKey(invoiceID fmt.Stringer) string {
	return fmt.Sprintf("invoice:%s:export:lock", invoiceID)
}

package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatVoucherNumber renders {TYPE}-{YEAR}-{seq:04d}.
func FormatVoucherNumber(t VoucherType, fiscalYear int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%04d", t, fiscalYear, seq)
}

// NumberPrefix is the shared prefix of every number in a (type, year) book.
func NumberPrefix(t VoucherType, fiscalYear int) string {
	return fmt.Sprintf("%s-%04d-", t, fiscalYear)
}

// ParseVoucherSequence extracts the numeric suffix of a voucher number within the given book.
func ParseVoucherSequence(number string, t VoucherType, fiscalYear int) (int64, bool) {
	prefix := NumberPrefix(t, fiscalYear)
	if !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(number, prefix), 10, 64)
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}

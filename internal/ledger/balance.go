package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SignedDelta returns the balance movement of posting amount on side against an account
// with the given normal balance: positive on the normal side, negative otherwise.
func SignedDelta(normal Side, side Side, amount decimal.Decimal) decimal.Decimal {
	if side == normal {
		return amount
	}
	return amount.Neg()
}

// balanceDelta is the net movement for one account within a posting.
type balanceDelta struct {
	AccountID int64
	Delta     decimal.Decimal
}

// postingLine is a resolved ledger line before persistence.
type postingLine struct {
	AccountID   int64
	Side        Side
	Amount      decimal.Decimal
	Description string
	ReversalOf  *int64
}

// planBalances walks lines in order, computes running balance snapshots starting from the
// accounts' current balances and returns the per-account net deltas ordered by account id.
func planBalances(lines []postingLine, accounts map[int64]Account) ([]decimal.Decimal, []balanceDelta) {
	running := make(map[int64]decimal.Decimal, len(accounts))
	net := make(map[int64]decimal.Decimal, len(accounts))
	snapshots := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		acc := accounts[line.AccountID]
		current, ok := running[line.AccountID]
		if !ok {
			current = acc.CurrentBalance
		}
		delta := SignedDelta(acc.NormalBalance, line.Side, line.Amount)
		current = current.Add(delta)
		running[line.AccountID] = current
		net[line.AccountID] = net[line.AccountID].Add(delta)
		snapshots[i] = current
	}
	deltas := make([]balanceDelta, 0, len(net))
	for id, d := range net {
		deltas = append(deltas, balanceDelta{AccountID: id, Delta: d})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].AccountID < deltas[j].AccountID })
	return snapshots, deltas
}

// expectedBalances returns the balance each account must hold after applying deltas.
func expectedBalances(deltas []balanceDelta, accounts map[int64]Account) map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal, len(deltas))
	for _, d := range deltas {
		out[d.AccountID] = accounts[d.AccountID].CurrentBalance.Add(d.Delta)
	}
	return out
}

func linesFromVoucher(entries []VoucherEntry) []postingLine {
	lines := make([]postingLine, 0, len(entries))
	for _, e := range entries {
		side, amount, _ := e.Side()
		lines = append(lines, postingLine{AccountID: e.AccountID, Side: side, Amount: amount, Description: e.Description})
	}
	return lines
}

// roundingLine books the residual diff = debit - credit on the opposite side of acc.
func roundingLine(acc Account, diff decimal.Decimal) (postingLine, error) {
	if acc.IsDeleted || !acc.IsActive || acc.IsGroup {
		return postingLine{}, ErrRoundingAccount
	}
	side := SideDebit
	if diff.IsPositive() {
		side = SideCredit
	}
	return postingLine{AccountID: acc.ID, Side: side, Amount: diff.Abs(), Description: "rounding difference"}, nil
}

func reversalLines(entries []LedgerEntry) []postingLine {
	lines := make([]postingLine, 0, len(entries))
	for _, e := range entries {
		id := e.ID
		lines = append(lines, postingLine{
			AccountID:   e.AccountID,
			Side:        e.Side.Opposite(),
			Amount:      e.Amount,
			Description: e.Description,
			ReversalOf:  &id,
		})
	}
	return lines
}

func accountIDs(entries []VoucherEntry) []int64 {
	seen := make(map[int64]struct{}, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.AccountID]; ok {
			continue
		}
		seen[e.AccountID] = struct{}{}
		ids = append(ids, e.AccountID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

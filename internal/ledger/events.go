package ledger

import (
	"time"

	"homeledger/internal/core"
)

// EventType names a committed mutation.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Entity names the kind of record an event refers to.
type Entity string

const (
	EntityExpense Entity = "expense"
	EntityBudget  Entity = "budget"
)

// Period is a calendar month touched by a mutation.
type Period struct {
	PropertyID int64 `json:"property_id"`
	Year       int   `json:"year"`
	Month      int   `json:"month"`
}

// Event describes a committed change. Periods lists every property-month
// whose reports changed; an update that moves a record lists both the old
// and the new month.
type Event struct {
	Type       EventType `json:"type"`
	Entity     Entity    `json:"entity"`
	ID         int64     `json:"id"`
	OwnerID    int64     `json:"owner_id"`
	PropertyID int64     `json:"property_id"`
	Periods    []Period  `json:"periods"`
	OccurredAt time.Time `json:"occurred_at"`
}

func expensePeriod(e core.Expense) Period {
	return Period{PropertyID: e.PropertyID, Year: e.Date.Year(), Month: e.Date.Month()}
}

func budgetPeriod(b core.Budget) Period {
	return Period{PropertyID: b.PropertyID, Year: b.Year, Month: b.Month}
}

// periods returns ps without duplicates, keeping order.
func periods(ps ...Period) []Period {
	out := make([]Period, 0, len(ps))
	for _, p := range ps {
		dup := false
		for _, seen := range out {
			if seen == p {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

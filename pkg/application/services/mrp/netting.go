package mrp

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// NetLine is the netting result for one requirement date
type NetLine struct {
	Date              time.Time
	Gross             decimal.Decimal
	ScheduledReceipts decimal.Decimal
	ProjectedOnHand   decimal.Decimal
	Net               decimal.Decimal
	Source            entities.DemandSource
}

// Net projects on-hand forward over the requirement dates of one item.
//
// Requirements are grouped by date and the first requirement seen on a date
// supplies the line's source. Only receipts dated exactly on a requirement date
// enter that date's projection.
// The projected balance is carried forward unchanged even when a shortage is found.
func Net(requirements []entities.Requirement, supply Supply, safetyFloor decimal.Decimal) []NetLine {
	if len(requirements) == 0 {
		return nil
	}

	ordered := make([]entities.Requirement, len(requirements))
	copy(ordered, requirements)
	sortRequirements(ordered)

	lines := make([]NetLine, 0)
	for _, r := range ordered {
		day := entities.Day(r.Date)
		if n := len(lines); n > 0 && lines[n-1].Date.Equal(day) {
			lines[n-1].Gross = lines[n-1].Gross.Add(r.Quantity)
			continue
		}
		lines = append(lines, NetLine{Date: day, Gross: r.Quantity, Source: r.Source})
	}

	onHand := supply.OnHand
	for i := range lines {
		scheduled, ok := supply.Receipts[lines[i].Date]
		if !ok {
			scheduled = decimal.Zero
		}

		projected := onHand.Add(scheduled).Sub(lines[i].Gross)
		lines[i].ScheduledReceipts = scheduled
		lines[i].ProjectedOnHand = projected
		lines[i].Net = decimal.Max(decimal.Zero, safetyFloor.Sub(projected))
		onHand = projected
	}

	return lines
}

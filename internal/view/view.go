// Package view holds the derived-view logic: pure functions that turn the
// current entity collections and the filter threshold into renderable
// sequences, totals, and the chart breakdown. Nothing here mutates its
// inputs; every value is recomputed on each render.
package view

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"costtracker/internal/core"
)

// Costed is implemented by entities that carry a filterable cost value.
type Costed interface {
	CostValue() float64
}

type (
	item      core.Item
	otherCost core.OtherCost
)

func (i item) CostValue() float64      { return i.Cost }
func (c otherCost) CostValue() float64 { return c.Amount }

// FilterByThreshold keeps the entities whose cost value is greater than or
// equal to threshold. The boundary is inclusive: a cost exactly equal to the
// threshold is shown, and the default threshold 0 passes everything the
// store holds, including zero or negative values that arrived out of band.
// Relative order is preserved.
func FilterByThreshold[T Costed](in []T, threshold float64) []T {
	out := make([]T, 0, len(in))
	for _, e := range in {
		if e.CostValue() >= threshold {
			out = append(out, e)
		}
	}
	return out
}

// FilterItems applies the threshold to an item collection.
func FilterItems(items []core.Item, threshold float64) []core.Item {
	wrapped := make([]item, len(items))
	for i, it := range items {
		wrapped[i] = item(it)
	}
	kept := FilterByThreshold(wrapped, threshold)
	out := make([]core.Item, len(kept))
	for i, it := range kept {
		out[i] = core.Item(it)
	}
	return out
}

// FilterOtherCosts applies the threshold to an other-cost collection.
func FilterOtherCosts(costs []core.OtherCost, threshold float64) []core.OtherCost {
	wrapped := make([]otherCost, len(costs))
	for i, c := range costs {
		wrapped[i] = otherCost(c)
	}
	kept := FilterByThreshold(wrapped, threshold)
	out := make([]core.OtherCost, len(kept))
	for i, c := range kept {
		out[i] = core.OtherCost(c)
	}
	return out
}

// Sort keys. Each entity type supports its string field and its numeric field.
const (
	SortItemsByName = "name"
	SortItemsByCost = "cost"

	SortOtherCostsByDescription = "description"
	SortOtherCostsByAmount      = "amount"
)

// SortItems returns a sorted copy of items. Name sorting is locale-aware
// lexicographic, cost sorting is ascending numeric. Unknown keys fall back
// to name. Ties keep their relative order.
func SortItems(items []core.Item, key string) []core.Item {
	out := make([]core.Item, len(items))
	copy(out, items)
	if key == SortItemsByCost {
		sort.SliceStable(out, func(a, b int) bool { return out[a].Cost < out[b].Cost })
		return out
	}
	col := collate.New(language.English)
	sort.SliceStable(out, func(a, b int) bool { return col.CompareString(out[a].Name, out[b].Name) < 0 })
	return out
}

// SortOtherCosts returns a sorted copy of costs, by description or amount.
func SortOtherCosts(costs []core.OtherCost, key string) []core.OtherCost {
	out := make([]core.OtherCost, len(costs))
	copy(out, costs)
	if key == SortOtherCostsByAmount {
		sort.SliceStable(out, func(a, b int) bool { return out[a].Amount < out[b].Amount })
		return out
	}
	col := collate.New(language.English)
	sort.SliceStable(out, func(a, b int) bool { return col.CompareString(out[a].Description, out[b].Description) < 0 })
	return out
}

// Total sums every item cost and every other-cost amount, ignoring the
// filter threshold. Native float64 summation; rounding error is accepted.
func Total(items []core.Item, costs []core.OtherCost) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Cost
	}
	for _, c := range costs {
		sum += c.Amount
	}
	return sum
}

// FormatAmount renders a cost with exactly two decimal places.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Slice is one category of the cost-breakdown chart.
type Slice struct {
	Label string
	Value float64
}

// Breakdown aggregates the two collections into the two chart categories.
func Breakdown(items []core.Item, costs []core.OtherCost) []Slice {
	var itemsTotal, otherTotal float64
	for _, it := range items {
		itemsTotal += it.Cost
	}
	for _, c := range costs {
		otherTotal += c.Amount
	}
	return []Slice{
		{Label: "Items", Value: itemsTotal},
		{Label: "Other Costs", Value: otherTotal},
	}
}

package domain

import "strings"

type Station string

const (
	StationKitchen Station = "kitchen"
	StationBar     Station = "bar"
)

// ReadinessPolicy decides how the ready flags start when an order is confirmed.
// Under every policy an order becomes listo only when both flags are true.
type ReadinessPolicy string

const (
	// PolicyStrict starts both flags false: every order waits for both roles.
	PolicyStrict ReadinessPolicy = "strict"
	// PolicyCategories pre-acknowledges the flag of a station with nothing to prepare.
	PolicyCategories ReadinessPolicy = "categories"
)

func ParseReadinessPolicy(raw string) ReadinessPolicy {
	switch ReadinessPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case PolicyCategories:
		return PolicyCategories
	default:
		return PolicyStrict
	}
}

func (s Station) Valid() bool {
	return s == StationKitchen || s == StationBar
}

// Column is the single column a station's ready mark writes.
func (s Station) Column() string {
	if s == StationBar {
		return "bar_ready"
	}
	return "kitchen_ready"
}

// Category is the item category a station prepares.
func (s Station) Category() string {
	if s == StationBar {
		return CategoryDrink
	}
	return CategoryFood
}

// StationsRequired reports which stations have items to prepare.
func StationsRequired(items []Item) (kitchen, bar bool) {
	for _, item := range items {
		switch item.Category {
		case CategoryFood:
			kitchen = true
		case CategoryDrink:
			bar = true
		}
	}
	return kitchen, bar
}

// InitialFlags returns the ready flags an order starts preparation with.
func InitialFlags(items []Item, policy ReadinessPolicy) (kitchenReady, barReady bool) {
	if policy != PolicyCategories {
		return false, false
	}
	kitchen, bar := StationsRequired(items)
	return !kitchen, !bar
}

// IsReady is the aggregation rule: both roles have marked the order ready.
func IsReady(o Order) bool {
	return o.KitchenReady && o.BarReady
}

func (o Order) Flag(s Station) bool {
	if s == StationBar {
		return o.BarReady
	}
	return o.KitchenReady
}

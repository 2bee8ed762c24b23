package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/menuya/internal/apperror"
)

// ValidateCreate checks a create request and normalizes kind and table number.
// Delivery orders are always filed under DeliveryTableNumber.
func ValidateCreate(req *CreateOrderRequest) error {
	if req == nil {
		return apperror.Validation("order", "request is required")
	}

	kind := Kind(strings.ToLower(strings.TrimSpace(string(req.Kind))))
	switch kind {
	case "":
		kind = KindSalon
	case KindSalon, KindDelivery:
	default:
		return apperror.Validation("kind", "must be salon or delivery")
	}
	req.Kind = kind

	if kind == KindDelivery {
		req.TableNumber = DeliveryTableNumber
		if strings.TrimSpace(req.DeliveryAddress) == "" {
			return apperror.Validation("delivery_address", "is required for delivery orders")
		}
		if err := validateCoordinates(req.DeliveryLat, req.DeliveryLng); err != nil {
			return err
		}
	} else {
		if err := validateSalonTable(req.TableNumber); err != nil {
			return err
		}
		if strings.TrimSpace(req.DeliveryAddress) != "" || req.DeliveryLat != nil || req.DeliveryLng != nil {
			return apperror.Validation("delivery_address", "only delivery orders carry a delivery address")
		}
	}

	if err := validateItems(req.Items); err != nil {
		return err
	}
	if req.TotalAmount != nil {
		if err := validateAmount("total_amount", *req.TotalAmount); err != nil {
			return err
		}
	}
	if req.PrepMinutes != nil && *req.PrepMinutes < 0 {
		return apperror.Validation("prep_minutes", "must be non-negative")
	}
	if req.State != "" && !req.State.Valid() {
		return apperror.Validation("state", fmt.Sprintf("unknown state %q", req.State))
	}
	return nil
}

// ValidatePatch applies the create rules to the fields present in the patch.
func ValidatePatch(p OrderPatch) error {
	if p.Empty() {
		return apperror.Validation("patch", "at least one field is required")
	}
	if p.TableNumber != nil {
		if err := validateSalonTable(*p.TableNumber); err != nil {
			return err
		}
	}
	if p.Items != nil {
		if err := validateItems(*p.Items); err != nil {
			return err
		}
	}
	if p.TotalAmount != nil {
		if err := validateAmount("total_amount", *p.TotalAmount); err != nil {
			return err
		}
	}
	if p.PrepMinutes != nil && *p.PrepMinutes < 0 {
		return apperror.Validation("prep_minutes", "must be non-negative")
	}
	if p.State != nil && !p.State.Valid() {
		return apperror.Validation("state", fmt.Sprintf("unknown state %q", *p.State))
	}
	if p.DeliveryAddress != nil && strings.TrimSpace(*p.DeliveryAddress) == "" {
		return apperror.Validation("delivery_address", "must not be blank")
	}
	return nil
}

// ComputeTotal sums the item amounts, rounded to cents.
func ComputeTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount())
	}
	return total.Round(2)
}

// DerivePrepMinutes is the largest per-item estimate, nil when no item has one.
func DerivePrepMinutes(items []Item) *int {
	var out *int
	for _, item := range items {
		if item.PrepMinutes == nil {
			continue
		}
		if out == nil || *item.PrepMinutes > *out {
			v := *item.PrepMinutes
			out = &v
		}
	}
	return out
}

func validateSalonTable(n int) error {
	if n <= 0 {
		return apperror.Validation("table_number", "must be greater than zero")
	}
	if n == DeliveryTableNumber {
		return apperror.Validation("table_number", "is reserved for delivery orders")
	}
	return nil
}

func validateItems(items []Item) error {
	if len(items) == 0 {
		return apperror.Validation("items", "at least one item is required")
	}
	if _, err := json.Marshal(items); err != nil {
		return &apperror.ValidationError{Field: "items", Message: "must be serializable", Err: err}
	}
	for i, item := range items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.Name) == "" {
			return apperror.Validation(field+".name", "is required")
		}
		if item.Quantity < 1 {
			return apperror.Validation(field+".quantity", "must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			return apperror.Validation(field+".unit_price", "must be non-negative")
		}
		if item.PrepMinutes != nil && *item.PrepMinutes < 0 {
			return apperror.Validation(field+".prep_minutes", "must be non-negative")
		}
	}
	return nil
}

func validateAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperror.Validation(field, "must be a finite number")
	}
	if v < 0 {
		return apperror.Validation(field, "must be non-negative")
	}
	return nil
}

func validateCoordinates(lat, lng *float64) error {
	if lat != nil {
		if math.IsNaN(*lat) || math.IsInf(*lat, 0) || *lat < -90 || *lat > 90 {
			return apperror.Validation("delivery_lat", "must be within [-90, 90]")
		}
	}
	if lng != nil {
		if math.IsNaN(*lng) || math.IsInf(*lng, 0) || *lng < -180 || *lng > 180 {
			return apperror.Validation("delivery_lng", "must be within [-180, 180]")
		}
	}
	return nil
}

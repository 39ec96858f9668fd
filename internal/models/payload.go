package models

import (
	"sort"
	"time"
)

// NotificationPayload es lo que recibe el webhook cuando hay órdenes relevantes
type NotificationPayload struct {
	GeneratedAt      time.Time `json:"generated_at"`
	TotalOrders      int       `json:"total_orders"`
	TotalItems       int       `json:"total_items"`
	UniqueReferences []string  `json:"unique_references"`
	Orders           []Order   `json:"orders"`
}

// NewNotificationPayload construye el resumen (referencias únicas ordenadas, total de líneas)
func NewNotificationPayload(orders []Order, generatedAt time.Time) NotificationPayload {
	seen := make(map[string]struct{})
	items := 0
	for _, o := range orders {
		items += len(o.Items)
		for _, ref := range o.MatchingReferences {
			seen[ref] = struct{}{}
		}
	}

	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	return NotificationPayload{
		GeneratedAt:      generatedAt,
		TotalOrders:      len(orders),
		TotalItems:       items,
		UniqueReferences: refs,
		Orders:           orders,
	}
}

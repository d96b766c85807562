package enum

// ── Order status codes (as delivered by the stay feed) ──

const (
	OrderStatusPending   = 0 // placed, on its way to the room
	OrderStatusDelivered = 1
	OrderStatusCancelled = 2
)

// KnownOrderStatus reports whether code is one of the mapped statuses.
// Unmapped codes render under the Unknown category; they are never an error.
func KnownOrderStatus(code int) bool {
	switch code {
	case OrderStatusPending, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ── Staff roles (CHECK constrained in DB) ──

const (
	StaffRoleAdmin   = "ADMIN"
	StaffRoleKitchen = "KITCHEN"
)

// ── WebSocket event types ──

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

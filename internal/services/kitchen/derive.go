package kitchen

import "restaurant-pos/internal/models"

// DeriveOrderStatus folds the statuses of an order's tickets into the order
// status they imply. Cancelled tickets are ignored. ok is false when the
// tickets imply nothing beyond what the order already had at creation.
//
//	all DELIVERED              -> DELIVERED
//	all READY or later         -> READY
//	any IN_PROGRESS or later   -> IN_PREP
func DeriveOrderStatus(statuses []models.TicketStatus) (status models.OrderStatus, ok bool) {
	var live, started, ready, delivered int
	for _, s := range statuses {
		r := s.Rank()
		if r < 0 {
			continue
		}
		live++
		if r >= models.TicketInProgress.Rank() {
			started++
		}
		if r >= models.TicketReady.Rank() {
			ready++
		}
		if s == models.TicketDelivered {
			delivered++
		}
	}

	switch {
	case live == 0 || started == 0:
		return "", false
	case delivered == live:
		return models.OrderDelivered, true
	case ready == live:
		return models.OrderReady, true
	default:
		return models.OrderInPrep, true
	}
}

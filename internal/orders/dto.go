package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/florelink/florelink-backend/pkg/db/models"
	"github.com/florelink/florelink-backend/pkg/enums"
	"github.com/florelink/florelink-backend/pkg/pagination"
	"github.com/florelink/florelink-backend/pkg/types"
)

// CartItem is one proposed cart entry before pricing resolution.
type CartItem struct {
	CatalogItemID uuid.UUID
	Quantity      int
}

// CreateInput captures the data required to assemble an order.
type CreateInput struct {
	UserID          uuid.UUID
	Role            enums.UserRole
	Items           []CartItem
	ShippingAddress types.ShippingAddress
	DeliveryDate    *time.Time
	Notes           *string
	PaymentMethod   enums.PaymentMethod
}

// ListFilters describe the inputs supported by the order list.
type ListFilters struct {
	Status *enums.OrderStatus
}

// ListInput wraps the caller identity plus paging and filters.
type ListInput struct {
	UserID  uuid.UUID
	Params  pagination.Params
	Filters ListFilters
}

// OrderList wraps the paginated orders plus the pagination block.
type OrderList struct {
	Orders     []models.Order
	Pagination types.Pagination
}

// UpdateStatusInput carries the contextual metadata for a status change.
type UpdateStatusInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Role    enums.UserRole
	Status  enums.OrderStatus
}

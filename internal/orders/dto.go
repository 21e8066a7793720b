package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/mhizterpaul/cartlink-backend/pkg/db/models"
	"github.com/mhizterpaul/cartlink-backend/pkg/enums"
)

// CreateOrderInput captures everything needed to place an order. The quoted
// price is read from the product row inside the same transaction, never from
// the caller.
type CreateOrderInput struct {
	CustomerID        uuid.UUID
	MerchantProductID uuid.UUID
	Quantity          int
	ProductLinkID     *uuid.UUID
}

// MerchantOrderFilters narrows a merchant's order listing. All fields are
// optional and combine with AND.
type MerchantOrderFilters struct {
	Status *enums.OrderStatus
	From   *time.Time
	To     *time.Time
}

// MerchantOrderPage is one page of a merchant's orders. NextCursor is empty
// on the last page.
type MerchantOrderPage struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

package order

import (
	"encoding/json"

	"sooicy-orders/internal/models"
)

type AddonRef struct {
	ID int64 `json:"id"`
}

// ItemSpec is one cart line. Add-ons may come as plain ids, as objects, or both.
type ItemSpec struct {
	ProductID           int64      `json:"product_id"`
	Quantity            int        `json:"quantity"`
	AddonIDs            []int64    `json:"addon_ids"`
	SelectedAddons      []AddonRef `json:"selectedAddons"`
	SpecialInstructions string     `json:"special_instructions"`
}

// UnmarshalJSON defaults an absent quantity to 1. An explicit value is kept
// as sent so that validation can reject it.
func (s *ItemSpec) UnmarshalJSON(data []byte) error {
	type plain ItemSpec
	p := plain{Quantity: 1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = ItemSpec(p)
	return nil
}

func (s ItemSpec) addonIDs() []int64 {
	ids := make([]int64, 0, len(s.AddonIDs)+len(s.SelectedAddons))
	ids = append(ids, s.AddonIDs...)
	for _, a := range s.SelectedAddons {
		ids = append(ids, a.ID)
	}
	return ids
}

type CreateOrderRequest struct {
	CustomerName        string               `json:"customer_name"`
	CustomerPhone       string               `json:"customer_phone"`
	CustomerEmail       string               `json:"customer_email"`
	DeliveryAddress     string               `json:"delivery_address"`
	PaymentMethod       models.PaymentMethod `json:"payment_method"`
	DeliveryType        models.DeliveryType  `json:"delivery_type"`
	PickupLocation      string               `json:"pickup_location"`
	SelectedLocationID  int64                `json:"selected_location"`
	SpecialInstructions string               `json:"special_instructions"`
	SooicyUserID        int64                `json:"sooicy_user"`
	Items               []ItemSpec           `json:"items_data"`
}

type OrderResult struct {
	Order         *models.Order `json:"order"`
	EstimatedTime string        `json:"estimated_time"`
	Message       string        `json:"message"`
}

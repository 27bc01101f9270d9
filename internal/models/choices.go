package models

// Choice is a value/label pair served to dashboards for select inputs.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var OrderStatusChoices = []Choice{
	{string(OrderPending), "Pending"},
	{string(OrderPreparing), "Preparing"},
	{string(OrderDelivering), "Delivering"},
	{string(OrderDelivered), "Delivered"},
	{string(OrderCancelled), "Cancelled"},
}

var RiderStatusChoices = []Choice{
	{string(RiderAvailable), "Available"},
	{string(RiderBusy), "Busy"},
	{string(RiderUnavailable), "Unavailable"},
	{string(RiderOffline), "Offline"},
}

var VehicleChoices = []Choice{
	{"bike", "Bike"},
	{"scooter", "Scooter"},
	{"car", "Car"},
	{"bicycle", "Bicycle"},
}

var PaymentChoices = []Choice{
	{string(PaymentCard), "Credit/Debit Card"},
	{string(PaymentCash), "Cash on Delivery"},
	{string(PaymentDigital), "Digital Wallet"},
}

// ProductCategories is the storefront menu, in display order.
var ProductCategories = []Choice{
	{"scoop-whoop", "Scoop-Whoop"},
	{"swirls", "Swirls"},
	{"tera-mera", "Tera-Mera"},
	{"scoop & sip", "Scoop & Sip"},
	{"slay-sundae", "Slay-Sundae"},
	{"berry-berry", "Berry-Berry"},
	{"rizzler-shake", "Rizzler-Shake"},
	{"swirl`s-top", "Swirl`s-Top"},
	{"waffles", "Waffles"},
	{"sassy-pancakes", "Sassy-Pancakes"},
}

// IsProductCategory reports whether value is one of ProductCategories.
func IsProductCategory(value string) bool {
	for _, c := range ProductCategories {
		if c.Value == value {
			return true
		}
	}
	return false
}

// ChoicesFor returns the choices for a dashboard model name.
func ChoicesFor(model string) ([]Choice, bool) {
	switch model {
	case "order":
		return OrderStatusChoices, true
	case "rider":
		return RiderStatusChoices, true
	case "vehicle":
		return VehicleChoices, true
	case "payment":
		return PaymentChoices, true
	}
	return nil, false
}

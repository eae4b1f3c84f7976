// Package session simulates one shopper against one backend: the ordered
// script of API calls, the timed executor every call goes through, and the
// policy that picks which cart items to drop.
package session

// Product is a catalog entry.
type Product struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Manufacturer string  `json:"manufacturer"`
	TypeName     string  `json:"type_name"`
}

// CartLineItem is one distinct product in a cart.
type CartLineItem struct {
	ID       int     `json:"id"`
	Product  string  `json:"product"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Cart is the backend's view of a user's cart. A null cart is empty.
type Cart struct {
	Items []CartLineItem `json:"cart"`
	Total float64        `json:"total"`
}

// Step names, used for request names, metrics and errors.
const (
	StepRegister       = "register"
	StepLogin          = "login"
	StepListProducts   = "list-products"
	StepGetProduct     = "get-product"
	StepAddToCart      = "add-to-cart"
	StepGetCart        = "get-cart"
	StepRemoveFromCart = "remove-from-cart"
	StepPlaceOrder     = "place-order"
	StepGetOrders      = "get-orders"
	StepCancelOrder    = "cancel-order"
	StepLogout         = "logout"
)

type registerBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type addToCartBody struct {
	ItemID   int `json:"item_id"`
	Quantity int `json:"quantity"`
}

type removeFromCartBody struct {
	ItemID int `json:"item_id"`
}

type cancelOrderBody struct {
	OrderID int64 `json:"order_id"`
}

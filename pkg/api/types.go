package api

// Envelope carries the application-level error field the backend may attach
// to any 2xx JSON object. A response is only a success when both the HTTP
// status and this field say so.
type Envelope struct {
	Err string `json:"error,omitempty"`
}

func (e Envelope) apiError() string { return e.Err }

type errorCarrier interface {
	apiError() string
}

// StatusResult is the moderation response: the canonical status string the
// reconciler renders, never a locally guessed one.
type StatusResult struct {
	Envelope
	Status string `json:"status"`
}

// CartItemInput is the body for cart add/update calls.
type CartItemInput struct {
	DishID       string `json:"dish_id"`
	RestaurantID string `json:"restaurant_id"`
	Quantity     int    `json:"quantity"`
	Note         string `json:"note"`
}

// CartSummary is the authoritative cart aggregate returned by every cart
// mutation. Subtotal and Total are pointers because some endpoints only
// return the item count. RedirectURL, when non-empty, is an authoritative
// navigation instruction (e.g. the cart just became empty).
type CartSummary struct {
	Envelope
	Success     bool     `json:"success"`
	TotalItems  int      `json:"total_items"`
	Subtotal    *float64 `json:"subtotal,omitempty"`
	Total       *float64 `json:"total,omitempty"`
	RedirectURL string   `json:"redirect_url,omitempty"`
}

// OrderItem is one dish line inside an order.
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// OrderResult is returned by order approve/cancel.
type OrderResult struct {
	Envelope
	Status       string      `json:"status"`
	OrderID      string      `json:"order_id"`
	CustomerName string      `json:"customer_name"`
	TotalPrice   float64     `json:"total_price"`
	Items        []OrderItem `json:"items,omitempty"`
	Reason       string      `json:"reason,omitempty"`
}

// Notification is one feed entry.
type Notification struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	OrderID   string `json:"order_id"`
	CreateAt  string `json:"create_at"`
	IsRead    bool   `json:"is_read"`
	TargetURL string `json:"target_url"`
}

// Feed is the notification feed plus the authoritative unread count.
type Feed struct {
	Envelope
	Items  []Notification `json:"items"`
	Unread int            `json:"unread"`
}

// Dish is a menu entry as the backend declares it.
type Dish struct {
	DishID      string  `json:"dish_id"`
	Name        string  `json:"name"`
	Note        string  `json:"note"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	IsAvailable bool    `json:"is_available"`
}

// DishInput is the body for dish create/update calls.
type DishInput struct {
	Name        string  `json:"name"`
	Note        string  `json:"note"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url,omitempty"`
	IsAvailable bool    `json:"is_available"`
}

// DishResult is returned by dish mutations.
type DishResult struct {
	Envelope
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Dish    Dish   `json:"dish"`
}

// TransactionStats feeds the admin monthly transactions chart.
type TransactionStats struct {
	Envelope
	Labels       []string  `json:"labels"`
	Transactions []float64 `json:"transactions"`
}

// RevenueSummary is the owner's today/month revenue headline.
type RevenueSummary struct {
	Envelope
	Today float64 `json:"today"`
	Month float64 `json:"month"`
}

// DishStat is one slice of the owner's dish donut chart.
type DishStat struct {
	Dish     string `json:"dish"`
	Quantity int    `json:"quantity"`
}

// RevenuePoint is one point of the owner's revenue line chart.
type RevenuePoint struct {
	Label   string  `json:"label"`
	Revenue float64 `json:"revenue"`
}

// StatsRange selects the period for owner chart queries.
type StatsRange struct {
	Mode    string // "day", "custom_month" or "quarter"
	Month   string // set when Mode == "custom_month"
	Quarter string // set when Mode == "quarter"
}

// RestaurantSettings is the body for the owner settings save.
type RestaurantSettings struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	OpenHour  string  `json:"open_hour"`
	CloseHour string  `json:"close_hour"`
	IsOpen    bool    `json:"is_open"`
	Tax       float64 `json:"tax"`
}

// RegisterInput is the body for restaurant registration.
type RegisterInput struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	ImageURL string `json:"image_url,omitempty"`
}

// SuccessResult is the generic {success, error} reply.
type SuccessResult struct {
	Envelope
	Success bool `json:"success"`
}

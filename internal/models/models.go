package models

// CreateBookingRequest - body of POST /booking
type CreateBookingRequest struct {
	EventID     string `json:"eventId" binding:"required"`
	TicketCount int    `json:"ticketCount,omitempty"`
}

// CreateBookingResponse - booking plus the hosted checkout redirect
type CreateBookingResponse struct {
	Booking     *Booking `json:"booking"`
	CheckoutURL string   `json:"checkoutUrl"`
}

// CancelBookingRequest - body of POST /booking/cancel
type CancelBookingRequest struct {
	EventID string `json:"eventId" binding:"required"`
}

// CancelBookingResponse - confirmation message
type CancelBookingResponse struct {
	Message string `json:"message"`
}

// ListBookingsResponse - one page of the caller's completed bookings
type ListBookingsResponse struct {
	Bookings []Booking `json:"bookings"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	Size     int       `json:"size"`
}

// CreateEventRequest - body of POST /events
type CreateEventRequest struct {
	Name        LocalizedText `json:"name" binding:"required"`
	Description LocalizedText `json:"description"`
	Venue       LocalizedText `json:"venue"`
	Category    string        `json:"category" binding:"required"`
	EventCode   string        `json:"eventCode" binding:"required"`
	Date        string        `json:"date" binding:"required"`
	Time        string        `json:"time"`
	Price       int64         `json:"price" binding:"min=0"`
	Capacity    int           `json:"capacity" binding:"required,min=1"`
	Image       string        `json:"image"`
	Status      string        `json:"status"`
}

// UpdateEventRequest - body of PUT /events/:id; nil fields are left unchanged
type UpdateEventRequest struct {
	Name        *LocalizedText `json:"name"`
	Description *LocalizedText `json:"description"`
	Venue       *LocalizedText `json:"venue"`
	Category    *string        `json:"category"`
	Date        *string        `json:"date"`
	Time        *string        `json:"time"`
	Price       *int64         `json:"price"`
	Capacity    *int           `json:"capacity"`
	Image       *string        `json:"image"`
	Status      *string        `json:"status"`
}

// ListEventsResponse - one page of events
type ListEventsResponse struct {
	Events []Event `json:"events"`
	Total  int64   `json:"total"`
	Page   int     `json:"page"`
	Size   int     `json:"size"`
}

// CreateCategoryRequest - body of POST /categories
type CreateCategoryRequest struct {
	Name LocalizedText `json:"name" binding:"required"`
}

// UpdateCategoryRequest - body of PUT /categories/:id
type UpdateCategoryRequest struct {
	Name LocalizedText `json:"name" binding:"required"`
}

// SignupRequest - body of POST /users/signup
type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest - body of POST /users/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse - issued token plus the user record
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// UpdateRoleRequest - body of PATCH /users/:id/role
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user organizer admin"`
}

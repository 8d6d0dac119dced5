// Package errors defines the domain error taxonomy: each error carries an
// HTTP status and a message key that the client resolves to a localized
// (en/ar) string.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Error is a domain error with an HTTP status and a translatable message key.
type Error struct {
	Status int
	Key    string
}

func (e *Error) Error() string {
	return e.Key
}

var (
	ErrEventNotFound      = &Error{Status: http.StatusNotFound, Key: "event_not_found"}
	ErrNoTicketsAvailable = &Error{Status: http.StatusBadRequest, Key: "no_tickets_available"}
	ErrAlreadyBooked      = &Error{Status: http.StatusBadRequest, Key: "already_booked"}
	ErrNotBooked          = &Error{Status: http.StatusNotFound, Key: "not_booked"}
	ErrBookingNotFound    = &Error{Status: http.StatusNotFound, Key: "booking_not_found"}
	ErrCategoryNotFound   = &Error{Status: http.StatusNotFound, Key: "category_not_found"}
	ErrUserNotFound       = &Error{Status: http.StatusNotFound, Key: "user_not_found"}
	ErrEmailTaken         = &Error{Status: http.StatusConflict, Key: "email_taken"}
	ErrInvalidCredentials = &Error{Status: http.StatusUnauthorized, Key: "invalid_credentials"}
	ErrUnauthorized       = &Error{Status: http.StatusUnauthorized, Key: "unauthorized"}
	ErrForbidden          = &Error{Status: http.StatusForbidden, Key: "forbidden"}
	ErrInvalidSignature   = &Error{Status: http.StatusBadRequest, Key: "invalid_signature"}
	ErrCapacityTooSmall   = &Error{Status: http.StatusBadRequest, Key: "capacity_below_sold"}
	ErrPaymentGateway     = &Error{Status: http.StatusBadGateway, Key: "payment_gateway_error"}
)

// ErrEventAlreadyProcessed signals a webhook event id replay. It is an
// internal control-flow sentinel, never surfaced over HTTP.
var ErrEventAlreadyProcessed = stderrors.New("webhook event already processed")

// Message holds the localized texts for a message key.
type Message struct {
	En string `json:"en"`
	Ar string `json:"ar"`
}

var messages = map[string]Message{
	"event_not_found":       {En: "Event not found", Ar: "الفعالية غير موجودة"},
	"no_tickets_available":  {En: "No tickets available", Ar: "لا توجد تذاكر متاحة"},
	"already_booked":        {En: "You have already booked this event", Ar: "لقد قمت بحجز هذه الفعالية من قبل"},
	"not_booked":            {En: "You have not booked this event", Ar: "لم تقم بحجز هذه الفعالية"},
	"booking_not_found":     {En: "Booking not found", Ar: "الحجز غير موجود"},
	"category_not_found":    {En: "Category not found", Ar: "التصنيف غير موجود"},
	"user_not_found":        {En: "User not found", Ar: "المستخدم غير موجود"},
	"email_taken":           {En: "Email is already registered", Ar: "البريد الإلكتروني مسجل مسبقا"},
	"invalid_credentials":   {En: "Invalid email or password", Ar: "البريد الإلكتروني أو كلمة المرور غير صحيحة"},
	"unauthorized":          {En: "Authentication required", Ar: "يجب تسجيل الدخول"},
	"forbidden":             {En: "Operation not permitted", Ar: "العملية غير مسموح بها"},
	"invalid_signature":     {En: "Invalid webhook signature", Ar: "توقيع غير صالح"},
	"capacity_below_sold":   {En: "Capacity cannot be lower than sold tickets", Ar: "لا يمكن أن تقل السعة عن عدد التذاكر المباعة"},
	"payment_gateway_error": {En: "Payment gateway error", Ar: "خطأ في بوابة الدفع"},
}

// MessageFor resolves a key to its localized texts. Unknown keys get the key
// itself in both languages so clients always receive something renderable.
func MessageFor(key string) Message {
	if m, ok := messages[key]; ok {
		return m
	}
	return Message{En: key, Ar: key}
}

// StatusOf extracts the HTTP status of a domain error, or 500.
func StatusOf(err error) int {
	var de *Error
	if stderrors.As(err, &de) {
		return de.Status
	}
	return http.StatusInternalServerError
}

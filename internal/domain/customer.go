package domain

// Customer is the account that owns bookings. The core only reads customers.
type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
}

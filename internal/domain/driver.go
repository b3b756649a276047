package domain

// Driver represents a driver in the system. Drivers with HasOwnCar are tied
// to a specific car and never taken from the general pool.
type Driver struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CarID     string
	Available bool
	HasOwnCar bool
}

package domain

// Car is a bookable vehicle. Available is a single toggle, not a calendar.
type Car struct {
	ID               string
	Brand            string
	Model            string
	LicensePlate     string
	Capacity         int
	BaseRate         float64
	DriverRate       float64
	AssignedDriverID string // fixed driver for this car, optional
	Available        bool
}

// HasFixedDriver reports whether the car always travels with the same driver.
func (c *Car) HasFixedDriver() bool {
	return c.AssignedDriverID != ""
}

package service

import (
	"fmt"
	"math"
	"time"

	"cab/internal/domain"
)

// FareConfig holds the pricing constants for bookings.
type FareConfig struct {
	DistanceRate        float64       // per km
	Tax                 float64       // flat, per booking
	DriverFee           float64       // flat, only when a driver is assigned
	CancellationWindow  time.Duration // full refund when cancelled before pickup minus this
	CancellationFeeRate float64       // fraction kept when cancelled inside the window
}

// DefaultFareConfig returns the standard MegaCityCab tariff.
func DefaultFareConfig() FareConfig {
	return FareConfig{
		DistanceRate:        1.5,
		Tax:                 2.5,
		DriverFee:           50,
		CancellationWindow:  24 * time.Hour,
		CancellationFeeRate: 0.10,
	}
}

// Fare is the price breakdown of a booking.
type Fare struct {
	BaseRate     float64
	DistanceFare float64
	Tax          float64
	DriverFee    float64
	Total        float64
}

// FareCalculator prices bookings and refunds.
type FareCalculator struct {
	cfg FareConfig
}

// NewFareCalculator creates a new FareCalculator.
func NewFareCalculator(cfg FareConfig) *FareCalculator {
	return &FareCalculator{cfg: cfg}
}

// DriverFee is the flat fee charged when a driver is assigned.
func (c *FareCalculator) DriverFee() float64 {
	return c.cfg.DriverFee
}

// DistanceFare returns the distance component of the fare.
func (c *FareCalculator) DistanceFare(distance float64) float64 {
	return roundCents(distance * c.cfg.DistanceRate)
}

// Quote prices a booking. driverAssigned adds the driver fee.
func (c *FareCalculator) Quote(baseRate, distance float64, driverAssigned bool) Fare {
	fare := Fare{
		BaseRate:     baseRate,
		DistanceFare: c.DistanceFare(distance),
		Tax:          c.cfg.Tax,
	}
	if driverAssigned {
		fare.DriverFee = c.cfg.DriverFee
	}
	fare.Total = roundCents(fare.BaseRate + fare.DistanceFare + fare.Tax + fare.DriverFee)
	return fare
}

// Refund returns the amount given back when a booking worth total is
// cancelled at now. Cancelling strictly before the window opens is free.
func (c *FareCalculator) Refund(total float64, pickupAt, now time.Time) float64 {
	deadline := pickupAt.Add(-c.cfg.CancellationWindow)
	if now.Before(deadline) {
		return total
	}
	return roundCents(total * (1 - c.cfg.CancellationFeeRate))
}

// ParsePickupDateTime resolves a stored pickup date into an instant in loc.
// The date may carry its own time ("2006-01-02 15:04:05"). A date-only value
// takes its time from pickupTime when that parses, and midnight otherwise.
func ParsePickupDateTime(pickupDate, pickupTime string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(domain.PickupDateTimeLayout, pickupDate, loc); err == nil {
		return t, nil
	}

	day, err := time.ParseInLocation(domain.PickupDateLayout, pickupDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseablePickup, pickupDate)
	}

	if clock, err := time.Parse(domain.PickupTimeLayout, pickupTime); err == nil {
		return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
	}
	return day, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

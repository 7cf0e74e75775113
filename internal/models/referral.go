package models

import "time"

// ReferralStatus is the follow-up state of a referral
type ReferralStatus string

// ReferralStatus constants
const (
	ReferralStatusPending ReferralStatus = "Pending"
	ReferralStatusBooked  ReferralStatus = "Booked"
	ReferralStatusClosed  ReferralStatus = "Closed"
	ReferralStatusLost    ReferralStatus = "Lost"
)

// ReferralStatuses lists every status in display order
var ReferralStatuses = []ReferralStatus{
	ReferralStatusPending,
	ReferralStatusBooked,
	ReferralStatusClosed,
	ReferralStatusLost,
}

// IsValid reports whether s is a known status
func (s ReferralStatus) IsValid() bool {
	switch s {
	case ReferralStatusPending, ReferralStatusBooked, ReferralStatusClosed, ReferralStatusLost:
		return true
	}
	return false
}

// Referral is a lead a user submits about a third party interested in a vehicle
type Referral struct {
	ID            int            `json:"id"`
	UserID        int            `json:"userId"` // referrer
	FirstName     string         `json:"firstName"`
	LastName      string         `json:"lastName"`
	PhoneNumber   string         `json:"phoneNumber"`
	Email         string         `json:"email"`
	VehicleStatus string         `json:"vehicleStatus"` // new or used
	VehicleBrand  string         `json:"vehicleBrand"`
	VehicleModel  string         `json:"vehicleModel"`
	Status        ReferralStatus `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
}

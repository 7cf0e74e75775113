package models

// SignupRequest represents a signup request
type SignupRequest struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateReferralRequest represents the referral form submission
type CreateReferralRequest struct {
	FirstName     string `json:"firstName" validate:"required,max=100"`
	LastName      string `json:"lastName" validate:"required,max=100"`
	PhoneNumber   string `json:"phoneNumber" validate:"required,max=32"`
	Email         string `json:"email" validate:"omitempty,email,max=255"`
	VehicleStatus string `json:"vehicleStatus" validate:"omitempty,oneof=new used"`
	VehicleBrand  string `json:"vehicleBrand" validate:"max=100"`
	VehicleModel  string `json:"vehicleModel" validate:"max=100"`
}

// UpdateReferralStatusRequest represents an admin status change
type UpdateReferralStatusRequest struct {
	Status string `json:"status"`
}

// UpdateUserRoleRequest represents an admin role change
type UpdateUserRoleRequest struct {
	Role string `json:"role"`
}

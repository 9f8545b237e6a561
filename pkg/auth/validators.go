package auth

// PINPayload is the body for setup and login.
type PINPayload struct {
	PIN string `json:"pin" mod:"trim" validate:"required,numeric,min=4,max=8"`
}

// ChangePINPayload is the body for changing the PIN.
type ChangePINPayload struct {
	CurrentPIN string `json:"current_pin" mod:"trim" validate:"required"`
	NewPIN     string `json:"new_pin" mod:"trim" validate:"required,numeric,min=4,max=8"`
}

// StatusResponse represents the auth status response.
type StatusResponse struct {
	NeedsSetup bool `json:"needs_setup"`
}

// SessionResponse is returned after a successful setup or login.
type SessionResponse struct {
	ExpiresAt string `json:"expires_at"`
}

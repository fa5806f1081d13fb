package wake

// ClaimRequest is a device's attempt to take wake ownership for a home.
type ClaimRequest struct {
	HomeID     string   `json:"home_id"`
	DeviceID   string   `json:"device_id"`
	WakeID     string   `json:"wake_id,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ClaimResponse reports the arbitration outcome for one claim.
type ClaimResponse struct {
	Granted       bool   `json:"granted"`
	HomeID        string `json:"home_id"`
	DeviceID      string `json:"device_id"`
	WakeToken     string `json:"wake_token,omitempty"`
	OwnerDeviceID string `json:"owner_device_id,omitempty"`
	WakeID        string `json:"wake_id,omitempty"`
	Reason        string `json:"reason"`
	ExpiresInMS   int64  `json:"expires_in_ms"`
}

// ValidateRequest carries the ownership proof for validate, heartbeat and release.
type ValidateRequest struct {
	HomeID    string `json:"home_id"`
	DeviceID  string `json:"device_id"`
	WakeToken string `json:"wake_token"`
}

type ValidateResponse struct {
	Valid         bool   `json:"valid"`
	HomeID        string `json:"home_id"`
	OwnerDeviceID string `json:"owner_device_id,omitempty"`
	ExpiresInMS   int64  `json:"expires_in_ms"`
}

type ReleaseResponse struct {
	Released      bool   `json:"released"`
	Reason        string `json:"reason"`
	OwnerDeviceID string `json:"owner_device_id,omitempty"`
}

// HealthSnapshot describes the arbitration backend for the health endpoint.
type HealthSnapshot struct {
	Backend     string `json:"mode"`
	LockTTLMS   int64  `json:"lock_ttl_ms"`
	ActiveLocks int    `json:"active_locks"`
}

// Arbitration outcome reasons. These are part of the wire contract.
const (
	ReasonGranted        = "granted"
	ReasonRefreshed      = "refreshed"
	ReasonAlreadyClaimed = "already_claimed"
	ReasonNotFound       = "not_found"
	ReasonOwnerMismatch  = "owner_mismatch"
	ReasonReleased       = "released"
)

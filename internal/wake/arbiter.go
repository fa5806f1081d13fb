package wake

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	minLockTTL = time.Second
	maxLockTTL = 2 * time.Minute

	backendName = "in_process_memory"
)

// lease is one live wake lock. At most one per home id.
type lease struct {
	homeID          string
	deviceID        string
	wakeToken       string
	wakeID          string
	claimedAt       time.Time
	lastHeartbeatAt time.Time
	expiresAt       time.Time
}

func (l *lease) live(now time.Time) bool {
	return l.expiresAt.After(now)
}

func (l *lease) remainingMS(now time.Time) int64 {
	rem := l.expiresAt.Sub(now)
	if rem <= 0 {
		return 0
	}
	return rem.Milliseconds()
}

// Arbiter hands out time-bounded exclusive wake ownership per home.
// All state lives behind a single mutex; no operation touches external
// I/O while holding it.
type Arbiter struct {
	mu     sync.Mutex
	ttl    time.Duration
	leases map[string]*lease
	now    func() time.Time
}

// NewArbiter builds an arbiter with the given lease TTL. Out-of-range
// TTLs are clamped rather than rejected so a bad config value can never
// produce an instantly-expiring or permanently-stuck lock.
func NewArbiter(ttl time.Duration) *Arbiter {
	if ttl < minLockTTL {
		ttl = minLockTTL
	}
	if ttl > maxLockTTL {
		ttl = maxLockTTL
	}
	return &Arbiter{
		ttl:    ttl,
		leases: make(map[string]*lease),
		now:    time.Now,
	}
}

// Claim resolves a wake race for one home: first claimant wins until the
// lease expires or is released, a repeat claim from the owner refreshes in
// place, anyone else is told who owns it and for how much longer.
func (a *Arbiter) Claim(req ClaimRequest) ClaimResponse {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	next, resp := arbitrate(a.liveLease(req.HomeID, now), now, a.ttl, req, uuid.NewString(), uuid.NewString())
	a.leases[req.HomeID] = next
	return resp
}

// arbitrate is the pure claim decision: given the current live lease (nil
// when absent) it returns the lease to store and the response. Token and
// wake id are generated by the caller so the function stays deterministic.
func arbitrate(existing *lease, now time.Time, ttl time.Duration, req ClaimRequest, newToken, newWakeID string) (*lease, ClaimResponse) {
	if existing != nil {
		if existing.deviceID == req.DeviceID {
			refreshed := *existing
			refreshed.lastHeartbeatAt = now
			refreshed.expiresAt = now.Add(ttl)
			return &refreshed, ClaimResponse{
				Granted:     true,
				HomeID:      req.HomeID,
				DeviceID:    req.DeviceID,
				WakeToken:   refreshed.wakeToken,
				WakeID:      refreshed.wakeID,
				Reason:      ReasonRefreshed,
				ExpiresInMS: ttl.Milliseconds(),
			}
		}

		return existing, ClaimResponse{
			Granted:       false,
			HomeID:        req.HomeID,
			DeviceID:      req.DeviceID,
			OwnerDeviceID: existing.deviceID,
			WakeID:        existing.wakeID,
			Reason:        ReasonAlreadyClaimed,
			ExpiresInMS:   existing.remainingMS(now),
		}
	}

	wakeID := req.WakeID
	if wakeID == "" {
		wakeID = newWakeID
	}
	created := &lease{
		homeID:          req.HomeID,
		deviceID:        req.DeviceID,
		wakeToken:       newToken,
		wakeID:          wakeID,
		claimedAt:       now,
		lastHeartbeatAt: now,
		expiresAt:       now.Add(ttl),
	}
	return created, ClaimResponse{
		Granted:     true,
		HomeID:      req.HomeID,
		DeviceID:    req.DeviceID,
		WakeToken:   created.wakeToken,
		WakeID:      created.wakeID,
		Reason:      ReasonGranted,
		ExpiresInMS: ttl.Milliseconds(),
	}
}

// Validate checks that (home, device, token) still names the live owner.
// With refresh set, a valid check also extends the lease by a full TTL
// window; this is the heartbeat path. Without refresh the lease is left
// untouched and the current remaining time is reported.
func (a *Arbiter) Validate(homeID, deviceID, wakeToken string, refresh bool) ValidateResponse {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	existing := a.liveLease(homeID, now)
	if existing == nil {
		return ValidateResponse{Valid: false, HomeID: homeID}
	}

	if existing.deviceID != deviceID || existing.wakeToken != wakeToken {
		return ValidateResponse{
			Valid:         false,
			HomeID:        homeID,
			OwnerDeviceID: existing.deviceID,
			ExpiresInMS:   existing.remainingMS(now),
		}
	}

	if refresh {
		existing.lastHeartbeatAt = now
		existing.expiresAt = now.Add(a.ttl)
		return ValidateResponse{
			Valid:         true,
			HomeID:        homeID,
			OwnerDeviceID: deviceID,
			ExpiresInMS:   a.ttl.Milliseconds(),
		}
	}

	return ValidateResponse{
		Valid:         true,
		HomeID:        homeID,
		OwnerDeviceID: deviceID,
		ExpiresInMS:   existing.remainingMS(now),
	}
}

// Release removes the lease immediately when the caller proves ownership.
// A stale or wrong credential never evicts another device's lease.
func (a *Arbiter) Release(req ValidateRequest) ReleaseResponse {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	existing := a.liveLease(req.HomeID, now)
	if existing == nil {
		return ReleaseResponse{Released: false, Reason: ReasonNotFound}
	}

	if existing.deviceID != req.DeviceID || existing.wakeToken != req.WakeToken {
		return ReleaseResponse{
			Released:      false,
			Reason:        ReasonOwnerMismatch,
			OwnerDeviceID: existing.deviceID,
		}
	}

	delete(a.leases, req.HomeID)
	return ReleaseResponse{Released: true, Reason: ReasonReleased}
}

// HealthSnapshot prunes expired leases and reports the backend state.
// Safe to call at any frequency.
func (a *Arbiter) HealthSnapshot() HealthSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pruneExpired(a.now())
	return HealthSnapshot{
		Backend:     backendName,
		LockTTLMS:   a.ttl.Milliseconds(),
		ActiveLocks: len(a.leases),
	}
}

// Sweep prunes expired leases and returns how many were removed. Expiry
// is already re-checked on every access, so this only bounds memory held
// by homes that went quiet; it is driven by a background schedule.
func (a *Arbiter) Sweep() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	before := len(a.leases)
	a.pruneExpired(a.now())
	return before - len(a.leases)
}

// ActiveLocks reports the number of live leases without pruning.
func (a *Arbiter) ActiveLocks() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	count := 0
	for _, l := range a.leases {
		if l.live(now) {
			count++
		}
	}
	return count
}

// LockTTL returns the clamped lease TTL in effect.
func (a *Arbiter) LockTTL() time.Duration {
	return a.ttl
}

// liveLease returns the live lease for a home, lazily deleting an
// expired one. Caller must hold a.mu.
func (a *Arbiter) liveLease(homeID string, now time.Time) *lease {
	l, ok := a.leases[homeID]
	if !ok {
		return nil
	}
	if !l.live(now) {
		delete(a.leases, homeID)
		return nil
	}
	return l
}

// pruneExpired drops every expired lease. Caller must hold a.mu.
func (a *Arbiter) pruneExpired(now time.Time) {
	for homeID, l := range a.leases {
		if !l.live(now) {
			delete(a.leases, homeID)
		}
	}
}

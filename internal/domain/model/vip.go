package model

import "time"

// VIPState holds the VIP fields co-located on the user record.
// When Lifetime is true, ExpireAt is never consulted.
type VIPState struct {
	Level    int // 0 = no VIP
	ExpireAt *time.Time
	Lifetime bool
}

// ActiveAt reports whether VIP access is granted at the given instant.
func (v VIPState) ActiveAt(now time.Time) bool {
	if v.Lifetime {
		return true
	}
	return v.ExpireAt != nil && v.ExpireAt.After(now)
}

// RenewalPackage is the VIP-relevant slice of a purchased product.
type RenewalPackage struct {
	DurationDays   int
	GrantsLifetime bool
	Level          int
}

// ComputeRenewal returns the VIP state after applying a paid renewal.
// Rules:
//   - A lifetime purchase latches Lifetime and clears ExpireAt. Once lifetime,
//     always lifetime; repeated lifetime purchases are idempotent.
//   - A duration purchase stacks: an active subscription extends from its current
//     expiry, an expired or absent one restarts from now.
//   - The purchased tier wins when it is >= the current tier; a lower-tier renewal
//     keeps the current tier but still extends expiry, so the buyer gets the time
//     they paid for.
//   - Duration purchases while lifetime leave the state untouched (already maximal);
//     the caller still records the spend for audit.
func ComputeRenewal(cur VIPState, p RenewalPackage, now time.Time) VIPState {
	if p.GrantsLifetime {
		level := cur.Level
		if p.Level > level {
			level = p.Level
		}
		if level < 1 {
			level = 1
		}
		return VIPState{Level: level, ExpireAt: nil, Lifetime: true}
	}
	if cur.Lifetime {
		return cur
	}

	base := now
	if cur.ExpireAt != nil && cur.ExpireAt.After(now) {
		base = *cur.ExpireAt
	}
	expire := base.AddDate(0, 0, p.DurationDays)

	level := p.Level
	if cur.Level > level {
		level = cur.Level
	}
	if level < 1 {
		level = 1
	}
	return VIPState{Level: level, ExpireAt: &expire}
}

// Downgrade clears the VIP level once a non-lifetime subscription has expired.
// Idempotent: re-running it on an already-downgraded user changes nothing.
func Downgrade(cur VIPState, now time.Time) VIPState {
	if cur.Lifetime || cur.Level == 0 {
		return cur
	}
	if cur.ExpireAt == nil || cur.ExpireAt.After(now) {
		return cur
	}
	return VIPState{Level: 0, ExpireAt: cur.ExpireAt}
}

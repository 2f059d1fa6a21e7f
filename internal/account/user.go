package account

// User is the engine's view of one cross-margin account: fixed position
// arrays plus the per-user flags that shift margin requirements. The
// engine never mutates a user during a pass.
type User struct {
	SpotPositions [MaxSpotPositions]SpotPosition
	PerpPositions [MaxPerpPositions]PerpPosition

	// MaxMarginRatio raises the initial-margin floor, margin precision.
	// Zero means no user override.
	MaxMarginRatio uint32

	// HighLeverageMode swaps in the market's high-leverage margin ratios
	// where the market defines them.
	HighLeverageMode bool
}

// ActiveSpotPositions returns pointers to the non-available spot slots in
// array order.
func (u *User) ActiveSpotPositions() []*SpotPosition {
	out := make([]*SpotPosition, 0, MaxSpotPositions)
	for i := range u.SpotPositions {
		if !u.SpotPositions[i].IsAvailable() {
			out = append(out, &u.SpotPositions[i])
		}
	}
	return out
}

// ActivePerpPositions returns pointers to the non-available perp slots in
// array order.
func (u *User) ActivePerpPositions() []*PerpPosition {
	out := make([]*PerpPosition, 0, MaxPerpPositions)
	for i := range u.PerpPositions {
		if !u.PerpPositions[i].IsAvailable() {
			out = append(out, &u.PerpPositions[i])
		}
	}
	return out
}

// CustomMarginRatio returns the user override for the initial regime and
// zero otherwise: maintenance and fill checks ignore it.
func (u *User) CustomMarginRatio(initial bool) uint32 {
	if initial {
		return u.MaxMarginRatio
	}
	return 0
}

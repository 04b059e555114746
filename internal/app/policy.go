package app

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a session whose outbound queue is full.
type Policy interface {
	OnBackPressure(member *Presence, drops int) BackpressureAction
}

// SimplePolicy kicks a member once it has dropped more than MaxDrops
// frames. Zero kicks on the first drop.
type SimplePolicy struct {
	MaxDrops int
}

func (p SimplePolicy) OnBackPressure(member *Presence, drops int) BackpressureAction {
	if drops > p.MaxDrops {
		return KickMember
	}
	return DropFrame
}

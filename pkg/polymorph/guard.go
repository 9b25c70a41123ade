package polymorph

// Path selects the encode or the decode side of a Guard.
type Path uint8

const (
	EncodePath Path = iota
	DecodePath
)

func (p Path) String() string {
	if p == DecodePath {
		return "decode"
	}
	return "encode"
}

// Guard suppresses polymorphic handling for exactly one struct visit per
// arming. Encode and decode are armed independently.
//
// A Guard belongs to a single top-level Encode or Decode call and is not
// safe for concurrent use; concurrent calls each get their own.
type Guard struct {
	armed [2]bool
}

// Arm makes the next Consume on p report true.
func (g *Guard) Arm(p Path) { g.armed[p] = true }

// Consume reports whether p was armed and clears the arming.
func (g *Guard) Consume(p Path) bool {
	if !g.armed[p] {
		return false
	}
	g.armed[p] = false
	return true
}

// Disarm clears p without observing it.
func (g *Guard) Disarm(p Path) { g.armed[p] = false }

// Armed reports whether p is armed without consuming it.
func (g *Guard) Armed(p Path) bool { return g.armed[p] }

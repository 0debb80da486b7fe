package bgen

// Layout is a versioned variant block structure defined by the BGEN format. The
// values match the layout field of the header flags.
type Layout uint32

const (
	Layout1 Layout = 1
	Layout2 Layout = 2
)

func (l Layout) String() string {
	switch l {
	case Layout1:
		return "Layout1"
	case Layout2:
		return "Layout2"

	default:
		return "Illegal selection"
	}
}

package progression

import "errors"

var (
	// ErrInvalidAction means the XP action key is not in the action table.
	ErrInvalidAction = errors.New("invalid action")

	// ErrUnknownStreakType means the streak type is outside the fixed enum.
	ErrUnknownStreakType = errors.New("unknown streak type")

	// ErrRequirementsNotMet means an unlock was attempted without the
	// required level/XP.
	ErrRequirementsNotMet = errors.New("requirements not met")
)

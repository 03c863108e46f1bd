package recipe

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/labrecipe/internal/vessel"
)

// Every error returned by a Recipe method wraps exactly one of these.
var (
	// ErrUsage reports an unknown, duplicated or unused vessel name.
	ErrUsage = errors.New("usage error")
	// ErrState reports a call that is not allowed in the recipe's current
	// state: declaring after Bake, baking twice, misusing stages.
	ErrState = errors.New("state error")
	// ErrArgument reports a malformed argument.
	ErrArgument = errors.New("argument error")
	// ErrInfeasible reports a request that cannot be carried out physically.
	ErrInfeasible = errors.New("physically infeasible")
	// ErrConservation reports a substance balance that went negative.
	ErrConservation = errors.New("conservation error")
)

// classify wraps an error from the vessel or unit layer into the taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, vessel.ErrCapacity),
		errors.Is(err, vessel.ErrInsufficient),
		errors.Is(err, vessel.ErrInfeasible):
		return fmt.Errorf("%w: %w", ErrInfeasible, err)
	default:
		return fmt.Errorf("%w: %w", ErrArgument, err)
	}
}

package store

import (
	"errors"
	"fmt"
)

// ErrRecipe is matched by every *RecipeError.
var ErrRecipe = errors.New("store: recipe failed")

// ErrListenerPanic wraps the value of a listener that panicked. The commit
// that triggered it stands and the remaining listeners are still notified.
var ErrListenerPanic = errors.New("store: listener panicked")

var errNilRecipe = errors.New("nil recipe")

// RecipeError reports a recipe that returned an error or panicked.
// The store value is unchanged when Set returns a RecipeError.
type RecipeError struct {
	Err error
}

func (e *RecipeError) Error() string {
	return fmt.Sprintf("store: recipe failed: %v", e.Err)
}

func (e *RecipeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrRecipe) hold for any RecipeError.
func (e *RecipeError) Is(target error) bool {
	return target == ErrRecipe
}

// IsRecipeError checks if err is, or wraps, a recipe failure.
func IsRecipeError(err error) bool {
	return errors.Is(err, ErrRecipe)
}

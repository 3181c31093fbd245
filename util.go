package vom

import (
	"fmt"
	"reflect"
)

// copyInto assigns v into the value out points to, used by State.Get's
// pre-commit (builder) path where v is whatever concrete value a prior
// Set call stored, with no serialization round-trip to normalize types.
func copyInto(v interface{}, out interface{}) error {
	outVal := reflect.ValueOf(out)
	if outVal.Kind() != reflect.Ptr || outVal.IsNil() {
		return fmt.Errorf("vom: Get target must be a non-nil pointer, got %T", out)
	}
	elem := outVal.Elem()
	vVal := reflect.ValueOf(v)
	if !vVal.IsValid() {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}
	if !vVal.Type().AssignableTo(elem.Type()) {
		return fmt.Errorf("vom: cannot assign %T into %s", v, elem.Type())
	}
	elem.Set(vVal)
	return nil
}

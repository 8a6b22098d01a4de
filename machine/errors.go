package machine

import (
	"fmt"
	"strings"
)

// TransitionError is returned when a requested transition is rejected. Reason
// is the same human-readable explanation CanTransition produces, naming the
// object, the definition and the attempted target state.
type TransitionError struct {
	Reason string
}

func (e *TransitionError) Error() string {
	return e.Reason
}

// AmbiguousDefinitionError is returned when an object type maps to more than
// one registered definition and the caller did not disambiguate with an
// explicit definition name.
type AmbiguousDefinitionError struct {
	ObjectType string
	ObjectID   string
	StateNew   string
	DefName    string
	DefVersion string
	DefTags    []string
}

func (e *AmbiguousDefinitionError) Error() string {
	return fmt.Sprintf(
		"ambiguous input, object `%s` maps to more than one definition `%s` "+
			"(id:`%s`, state_new:`%s`, def_name:`%s`, def_version:`%s`)",
		e.ObjectType, strings.Join(e.DefTags, ", "), e.ObjectID, e.StateNew, e.DefName, e.DefVersion)
}

// UnknownObjectTypeError is returned when an object type was never registered
// in any definition's objects list.
type UnknownObjectTypeError struct {
	ObjectType string
	ObjectID   string
	StateNew   string
	DefName    string
	DefVersion string
}

func (e *UnknownObjectTypeError) Error() string {
	return fmt.Sprintf(
		"unknown object type `%s` (id:`%s`, state_new:`%s`, def_name:`%s`, def_version:`%s`)",
		e.ObjectType, e.ObjectID, e.StateNew, e.DefName, e.DefVersion)
}

// UnknownDefinitionError is returned when a definition tag is not registered.
type UnknownDefinitionError struct {
	DefTag string
}

func (e *UnknownDefinitionError) Error() string {
	return fmt.Sprintf("no such definition `%s`", e.DefTag)
}

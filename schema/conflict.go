package schema

import (
	"fmt"

	"github.com/drpcorg/binmeta/binmeta_errors"
)

// ConflictError is a field descriptor that contradicts a known one.
// Data already written under Known would decode wrongly if Got replaced
// it, so a conflict fails the write instead of being merged.
type ConflictError struct {
	TypeID   int32
	TypeName string
	Known    Field
	Got      Field
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("binmeta: schema conflict in type %s (%d): field %s is already known as %s",
		e.TypeName, e.TypeID, e.Got, e.Known)
}

func (e *ConflictError) Unwrap() error {
	return binmeta_errors.ErrSchemaConflict
}

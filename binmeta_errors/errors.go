// Provides common binmeta errors definitions.
package binmeta_errors

import "errors"

var (
	ErrSchemaConflict  = errors.New("binmeta: schema conflict")
	ErrTypeUnknown     = errors.New("binmeta: unknown type")
	ErrTypeIDCollision = errors.New("binmeta: type id collision")
	ErrRegressive      = errors.New("binmeta: published snapshot drops known fields")
	ErrBadSnapshot     = errors.New("binmeta: bad snapshot record")
	ErrBadObject       = errors.New("binmeta: bad object record")
	ErrBadField        = errors.New("binmeta: bad field description")
	ErrClosed          = errors.New("binmeta: registry closed")
)

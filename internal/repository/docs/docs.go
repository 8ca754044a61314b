// Package docs implements the repository interfaces on the document
// store.
//
// Every read goes through a model.FromDoc parser, so a malformed or
// tampered document surfaces as a data-integrity error here instead of a
// type-assertion surprise deeper in the call graph. Store failures other than
// not-found are reported as remote-service errors, matching how the
// rest of the app treats the document store as an external collaborator.
package docs

import (
	"errors"

	"github.com/snipmart/snipmart/internal/apperror"
)

// Collection names used by the repositories.
const (
	productsCollection     = "products"
	usersCollection        = "users"
	fulfillmentsCollection = "fulfillments"
)

// storeErr translates a raw docstore error: not-found becomes a
// not-found for the named resource, anything else a remote failure.
func storeErr(err error, resource, id string) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.NotFound(resource, id)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Remote("document store", err)
}

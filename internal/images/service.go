package images

import "errors"

var ErrDeleteUnsupported = errors.New("image host plan has no delete endpoint")

// Store is the external object store holding request photos. Uploads
// happen client side and only the durable URL is persisted, so the one
// capability that matters here is deletion. Plans without a delete
// endpoint report SupportsDelete false; callers record the deletion
// intent and move on instead of calling Delete.
type Store interface {
	SupportsDelete() bool

	// Delete removes the image behind a previously issued URL.
	Delete(imageUrl string) error
}

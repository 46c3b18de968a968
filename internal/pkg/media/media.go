package media

import "context"

// Storage is the minimal surface the engine needs from the media store.
// Banner objects are uploaded elsewhere; the engine stores their URLs and
// removes the objects when the owning campaign is hard-deleted.
type Storage interface {
	// Delete removes an object by key. Returns nil if the object is absent.
	Delete(ctx context.Context, key string) error

	// ObjectKey resolves a public URL back to an object key. The second
	// return value is false when the URL does not belong to this store.
	ObjectKey(publicURL string) (string, bool)
}

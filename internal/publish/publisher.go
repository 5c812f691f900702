package publish

import "context"

// Object is the stable reference returned for a published artifact.
type Object struct {
	Key string
	URL string
}

// Publisher persists a produced artifact and returns a retrievable reference.
type Publisher interface {
	Publish(ctx context.Context, key, mime string, data []byte) (Object, error)
}

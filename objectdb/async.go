package objectdb

import (
	"context"

	"github.com/mwantia/prefs/eventloop"
)

// AsyncClient turns a blocking Database into the completion-callback surface
// the settings layer consumes. Every call runs the blocking operation on its
// own goroutine and posts exactly one completion to the loop; the completion
// runs when the loop's owner pumps it, never concurrently with owner code.
//
// There is no cancellation. A completion always arrives eventually, even if
// the instance that issued the operation has been closed in the meantime;
// callers guard against that with a liveness token, not by preventing the
// completion.
type AsyncClient struct {
	db   Database
	loop *eventloop.Loop
}

func NewAsyncClient(db Database, loop *eventloop.Loop) *AsyncClient {
	return &AsyncClient{
		db:   db,
		loop: loop,
	}
}

// Exists checks for a blob and completes with the result.
func (c *AsyncClient) Exists(ctx context.Context, path string, complete func(exists bool, err error)) {
	go func() {
		exists, err := c.db.Exists(ctx, path)
		c.loop.Post(func() {
			complete(exists, err)
		})
	}()
}

// Load fetches a blob and completes with its content.
func (c *AsyncClient) Load(ctx context.Context, path string, complete func(blob []byte, err error)) {
	go func() {
		blob, err := c.db.Load(ctx, path)
		c.loop.Post(func() {
			complete(blob, err)
		})
	}()
}

// Store writes a blob and completes when it is durable. The blob is copied
// before the call returns, so the caller may reuse the slice.
func (c *AsyncClient) Store(ctx context.Context, path string, blob []byte, complete func(err error)) {
	copied := make([]byte, len(blob))
	copy(copied, blob)

	go func() {
		err := c.db.Store(ctx, path, copied)
		c.loop.Post(func() {
			complete(err)
		})
	}()
}

// Delete removes a blob and completes when it is gone.
func (c *AsyncClient) Delete(ctx context.Context, path string, complete func(err error)) {
	go func() {
		err := c.db.Delete(ctx, path)
		c.loop.Post(func() {
			complete(err)
		})
	}()
}

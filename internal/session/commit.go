package session

import (
	"context"

	"github.com/rbright/earworm/internal/recognize"
)

// Committer dispatches the promoted result when a final pass succeeds.
type Committer interface {
	Commit(context.Context, recognize.SongResult) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(context.Context, recognize.SongResult) error

func (f CommitFunc) Commit(ctx context.Context, result recognize.SongResult) error {
	return f(ctx, result)
}

// Publisher receives a snapshot after every applied state change.
type Publisher interface {
	Publish(Snapshot)
}

// PublishFunc adapts a function to the Publisher interface.
type PublishFunc func(Snapshot)

func (f PublishFunc) Publish(snapshot Snapshot) {
	f(snapshot)
}

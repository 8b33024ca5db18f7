package internal

import (
	"context"
)

// Asset is an exclusively owned, downloaded puzzle image. Remove is safe to
// call more than once; only the first call deletes the underlying file.
type Asset interface {
	Bytes() ([]byte, error)
	Remove() error
}

// GameSession is the per-user record of an in-progress game. A session only
// exists while a game is running: its Asset and watcher are both live, or the
// session has already been removed from the store. All mutation happens under
// the per-user lock held by the game service.
type GameSession struct {
	UserID     int64  `json:"user_id"`
	ChatID     int64  `json:"chat_id"`
	Level      int    `json:"level"`
	Answer     string `json:"-"`
	Hint       string `json:"-"`
	Asset      Asset  `json:"-"`
	Generation int    `json:"generation"`

	cancelWatcher context.CancelFunc
}

// ArmWatcher installs the cancel handle of a freshly started timeout watcher,
// cancelling the previous one first so watchers never accumulate across level
// transitions. It bumps Generation; a watcher armed for an older generation
// finds the mismatch on wake-up and must not act.
func (session *GameSession) ArmWatcher(cancel context.CancelFunc) int {
	if session.cancelWatcher != nil {
		session.cancelWatcher()
	}
	session.cancelWatcher = cancel
	session.Generation++
	return session.Generation
}

// StopWatcher cancels the in-flight timeout watcher. Cancelling a watcher
// that already fired is a no-op.
func (session *GameSession) StopWatcher() {
	if session.cancelWatcher != nil {
		session.cancelWatcher()
		session.cancelWatcher = nil
	}
}

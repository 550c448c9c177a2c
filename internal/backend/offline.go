package backend

import (
	"context"
	"errors"
)

// ErrNoTransport is returned by the offline client for every operation that
// needs a live backend.
var ErrNoTransport = errors.New("backend: no transport configured")

// Offline is the Client used when no transport adapter is wired in. The
// engine runs normally against local history; sends and downloads fail with
// ErrNoTransport and the peer list stays empty.
type Offline struct{}

// NewOffline returns the no-transport client.
func NewOffline() *Offline {
	return &Offline{}
}

func (*Offline) SendDirect(context.Context, string, string, string) error { return ErrNoTransport }
func (*Offline) SendGroup(context.Context, string, string, string) error  { return ErrNoTransport }
func (*Offline) JoinGroup(context.Context, string) error                  { return ErrNoTransport }
func (*Offline) Peers(context.Context) ([]Peer, error)                    { return nil, nil }
func (*Offline) ShareFile(context.Context, string, string) (string, error) {
	return "", ErrNoTransport
}
func (*Offline) FetchThumbnail(context.Context, string) ([]byte, error) { return nil, ErrNoTransport }
func (*Offline) FetchFile(context.Context, string) ([]byte, error)      { return nil, ErrNoTransport }
func (*Offline) RequestDownload(context.Context, string, string) (string, error) {
	return "", ErrNoTransport
}
func (*Offline) CancelDownload(context.Context, string) error { return ErrNoTransport }

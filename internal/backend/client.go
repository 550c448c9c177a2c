// Package backend defines the contract with the P2P messaging service.
// The transport itself lives outside this repo; the process wires in an
// adapter that implements Client and publishes push events on the bus
// under the "backend." namespace.
package backend

import "context"

// Client is the request side of the backend messaging service.
type Client interface {
	// SendDirect sends a text message to a peer. msgID is the locally
	// generated id the backend echoes back in the corresponding push event.
	SendDirect(ctx context.Context, peerID, msgID, content string) error
	// SendGroup sends a text message to a group.
	SendGroup(ctx context.Context, groupID, msgID, content string) error
	// JoinGroup joins a group by invite code.
	JoinGroup(ctx context.Context, code string) error
	// Peers returns the currently known peer list with capability tags.
	Peers(ctx context.Context) ([]Peer, error)
	// ShareFile offers a local file to the target and returns its share code.
	ShareFile(ctx context.Context, targetID, path string) (shareCode string, err error)
	// FetchThumbnail returns preview bytes for a file path or share code.
	FetchThumbnail(ctx context.Context, key string) ([]byte, error)
	// FetchFile returns the full decoded content for a file path or share code.
	FetchFile(ctx context.Context, key string) ([]byte, error)
	// RequestDownload starts downloading a shared file and returns the
	// backend download id used in subsequent lifecycle events.
	RequestDownload(ctx context.Context, shareCode, filename string) (downloadID string, err error)
	// CancelDownload aborts an in-flight download.
	CancelDownload(ctx context.Context, downloadID string) error
}

// Peer is an entry in the backend peer list.
type Peer struct {
	ID           string
	Name         string
	Capabilities []string
}

// IsGroup reports whether the peer advertises the group capability.
func (p Peer) IsGroup() bool {
	for _, c := range p.Capabilities {
		if c == "group" {
			return true
		}
	}
	return false
}

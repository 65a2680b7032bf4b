package call

import "errors"

var (
	// ErrMediaAccessDenied means the microphone could not be opened. The
	// call is abandoned before anything is sent.
	ErrMediaAccessDenied = errors.New("media access denied")

	// ErrSignalingSendFailed means the relay rejected a message after retry.
	ErrSignalingSendFailed = errors.New("signaling send failed")

	// ErrDeferred is returned by a Negotiator when a description arrives in
	// a signaling state that cannot accept it yet. The caller keeps it and
	// retries later.
	ErrDeferred = errors.New("negotiation state mismatch, deferred")

	ErrTimeout         = errors.New("call timed out")
	ErrRemoteHangup    = errors.New("remote hung up")
	ErrTransportFailed = errors.New("media transport failed")
	ErrCallEnded       = errors.New("call ended")

	ErrCallActive     = errors.New("a call is already active")
	ErrNoIncomingCall = errors.New("no incoming call to answer")
	ErrNoPeer         = errors.New("no peer to call in room")
	ErrClosed         = errors.New("call controller closed")
)

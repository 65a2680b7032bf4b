package call

import (
	"context"
	"errors"

	"github.com/petervdpas/roomcall/internal/signal"
)

// SDPState is the offer/answer sub-state of a negotiation.
type SDPState int

const (
	SDPStable SDPState = iota
	SDPHaveLocalOffer
	SDPHaveRemoteOffer
	SDPClosed
)

func (s SDPState) String() string {
	switch s {
	case SDPStable:
		return "stable"
	case SDPHaveLocalOffer:
		return "have-local-offer"
	case SDPHaveRemoteOffer:
		return "have-remote-offer"
	default:
		return "closed"
	}
}

// TransportState is the media transport state reported by an engine.
type TransportState int

const (
	TransportNew TransportState = iota
	TransportConnecting
	TransportConnected
	TransportDisconnected
	TransportFailed
	TransportClosed
)

// Stats are receive-side counters for the history record.
type Stats struct {
	PacketsReceived uint64
	BytesReceived   uint64
}

// Negotiator owns one call's media session.
type Negotiator interface {
	CreateOffer(ctx context.Context) (signal.SessionDescription, error)
	AcceptOfferAndCreateAnswer(ctx context.Context, offer signal.SessionDescription) (signal.SessionDescription, error)
	// ApplyRemoteAnswer returns ErrDeferred unless a local offer is pending.
	ApplyRemoteAnswer(answer signal.SessionDescription) error
	AddRemoteCandidates(candidates []signal.Candidate) error
	SignalingState() SDPState
	Stats() Stats
	// Close stops local tracks and releases the connection. Idempotent.
	Close() error
}

// EngineHooks carry engine callbacks back to the controller. They may be
// invoked from any goroutine.
type EngineHooks struct {
	OnLocalCandidate func(signal.Candidate)
	OnTransportState func(TransportState)
	OnSignalingState func(SDPState)
}

// EngineFactory builds a Negotiator for one call. It returns an error
// wrapping ErrMediaAccessDenied when the microphone cannot be opened.
type EngineFactory func(ctx context.Context, callID string, hooks EngineHooks) (Negotiator, error)

// negotiationSession tracks descriptions and candidates that arrived before
// the engine could take them.
type negotiationSession struct {
	engine            Negotiator
	remoteApplied     bool
	answerApplied     bool
	pendingAnswer     *signal.SessionDescription
	pendingCandidates []signal.Candidate
}

// addCandidates hands candidates to the engine once a remote description is
// in place and buffers them until then.
func (s *negotiationSession) addCandidates(cands []signal.Candidate) error {
	if s.engine == nil || !s.remoteApplied {
		s.pendingCandidates = append(s.pendingCandidates, cands...)
		return nil
	}
	return s.engine.AddRemoteCandidates(cands)
}

func (s *negotiationSession) flushCandidates() error {
	if len(s.pendingCandidates) == 0 || s.engine == nil || !s.remoteApplied {
		return nil
	}
	cands := s.pendingCandidates
	s.pendingCandidates = nil
	return s.engine.AddRemoteCandidates(cands)
}

// applyAnswer applies a remote answer or parks it as pending. It reports
// whether the answer is now applied. Answers after the first are ignored.
func (s *negotiationSession) applyAnswer(answer signal.SessionDescription) (bool, error) {
	if s.answerApplied {
		return false, nil
	}
	if s.engine == nil {
		s.pendingAnswer = &answer
		return false, nil
	}
	err := s.engine.ApplyRemoteAnswer(answer)
	if errors.Is(err, ErrDeferred) {
		s.pendingAnswer = &answer
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.answerApplied = true
	s.remoteApplied = true
	s.pendingAnswer = nil
	return true, nil
}

// retryPendingAnswer re-attempts a parked answer.
func (s *negotiationSession) retryPendingAnswer() (bool, error) {
	if s.pendingAnswer == nil {
		return false, nil
	}
	answer := *s.pendingAnswer
	s.pendingAnswer = nil
	return s.applyAnswer(answer)
}

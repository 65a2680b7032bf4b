package call

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petervdpas/roomcall/internal/signal"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// EngineOptions configure new pion engines.
type EngineOptions struct {
	ICEServers   []string
	CaptureAudio bool
}

// NewPionFactory returns an EngineFactory reading opts for every new call,
// so configuration changes apply to the next call.
func NewPionFactory(opts func() EngineOptions) EngineFactory {
	return func(ctx context.Context, callID string, hooks EngineHooks) (Negotiator, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return NewPionEngine(callID, opts(), hooks)
	}
}

// PionEngine is a Negotiator backed by a pion PeerConnection.
type PionEngine struct {
	callID      string
	pc          *webrtc.PeerConnection
	closeTracks func()
	hooks       EngineHooks

	packets atomic.Uint64
	bytes   atomic.Uint64
	lost    atomic.Uint32 // last fraction lost reported by the peer, 0-255

	closeOnce sync.Once
	closeErr  error
}

func NewPionEngine(callID string, opts EngineOptions, hooks EngineHooks) (*PionEngine, error) {
	pc, closeTracks, err := initMediaPC(callID, opts.CaptureAudio, opts.ICEServers)
	if err != nil {
		return nil, err
	}
	e := &PionEngine{callID: callID, pc: pc, closeTracks: closeTracks, hooks: hooks}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || hooks.OnLocalCandidate == nil {
			return
		}
		ci := c.ToJSON()
		hooks.OnLocalCandidate(signal.Candidate{
			Candidate:     ci.Candidate,
			SDPMLineIndex: ci.SDPMLineIndex,
			SDPMid:        ci.SDPMid,
		})
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Infof("CALL [%s]: transport %s", callID, s)
		if hooks.OnTransportState != nil {
			hooks.OnTransportState(transportState(s))
		}
	})
	pc.OnSignalingStateChange(func(s webrtc.SignalingState) {
		log.Debugf("CALL [%s]: signaling state %s", callID, s)
		if hooks.OnSignalingState != nil {
			hooks.OnSignalingState(sdpState(s))
		}
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Infof("CALL [%s]: remote %s track (%s)", callID, track.Kind(), track.Codec().MimeType)
		go e.drainTrack(track)
	})
	for _, sender := range pc.GetSenders() {
		if sender.Track() != nil {
			go e.drainRTCP(sender)
		}
	}
	return e, nil
}

func (e *PionEngine) CreateOffer(ctx context.Context) (signal.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return signal.SessionDescription{}, err
	}
	offer, err := e.pc.CreateOffer(nil)
	if err != nil {
		return signal.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err := e.pc.SetLocalDescription(offer); err != nil {
		return signal.SessionDescription{}, fmt.Errorf("set local offer: %w", err)
	}
	return signal.SessionDescription{Type: "offer", SDP: offer.SDP}, nil
}

func (e *PionEngine) AcceptOfferAndCreateAnswer(ctx context.Context, offer signal.SessionDescription) (signal.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return signal.SessionDescription{}, err
	}
	if err := e.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer.SDP}); err != nil {
		return signal.SessionDescription{}, fmt.Errorf("set remote offer: %w", err)
	}
	answer, err := e.pc.CreateAnswer(nil)
	if err != nil {
		return signal.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err := e.pc.SetLocalDescription(answer); err != nil {
		return signal.SessionDescription{}, fmt.Errorf("set local answer: %w", err)
	}
	return signal.SessionDescription{Type: "answer", SDP: answer.SDP}, nil
}

func (e *PionEngine) ApplyRemoteAnswer(answer signal.SessionDescription) error {
	if st := e.pc.SignalingState(); st != webrtc.SignalingStateHaveLocalOffer {
		return fmt.Errorf("apply answer in %s: %w", st, ErrDeferred)
	}
	if err := e.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer.SDP}); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	return nil
}

func (e *PionEngine) AddRemoteCandidates(candidates []signal.Candidate) error {
	var errs []error
	for _, c := range candidates {
		if c.Candidate == "" {
			continue
		}
		err := e.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     c.Candidate,
			SDPMid:        c.SDPMid,
			SDPMLineIndex: c.SDPMLineIndex,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *PionEngine) SignalingState() SDPState {
	return sdpState(e.pc.SignalingState())
}

func (e *PionEngine) Stats() Stats {
	return Stats{PacketsReceived: e.packets.Load(), BytesReceived: e.bytes.Load()}
}

func (e *PionEngine) Close() error {
	e.closeOnce.Do(func() {
		if e.closeTracks != nil {
			e.closeTracks()
		}
		e.closeErr = e.pc.Close()
		log.Infof("CALL [%s]: engine closed (%d packets, %d bytes received, peer loss %d/256)",
			e.callID, e.packets.Load(), e.bytes.Load(), e.lost.Load())
	})
	return e.closeErr
}

// drainTrack reads remote RTP until the track ends, counting packets.
func (e *PionEngine) drainTrack(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	var pkt rtp.Packet
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			return
		}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		e.packets.Add(1)
		e.bytes.Add(uint64(len(pkt.Payload)))
	}
}

// drainRTCP reads sender reports so interceptors keep running, and notes
// the loss the peer reports for our stream.
func (e *PionEngine) drainRTCP(sender *webrtc.RTPSender) {
	for {
		pkts, _, err := sender.ReadRTCP()
		if err != nil {
			return
		}
		for _, p := range pkts {
			rr, ok := p.(*rtcp.ReceiverReport)
			if !ok {
				continue
			}
			for _, r := range rr.Reports {
				e.lost.Store(uint32(r.FractionLost))
			}
		}
	}
}

func sdpState(s webrtc.SignalingState) SDPState {
	switch s {
	case webrtc.SignalingStateStable:
		return SDPStable
	case webrtc.SignalingStateHaveLocalOffer:
		return SDPHaveLocalOffer
	case webrtc.SignalingStateHaveRemoteOffer:
		return SDPHaveRemoteOffer
	default:
		return SDPClosed
	}
}

func transportState(s webrtc.PeerConnectionState) TransportState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return TransportConnecting
	case webrtc.PeerConnectionStateConnected:
		return TransportConnected
	case webrtc.PeerConnectionStateDisconnected:
		return TransportDisconnected
	case webrtc.PeerConnectionStateFailed:
		return TransportFailed
	case webrtc.PeerConnectionStateClosed:
		return TransportClosed
	default:
		return TransportNew
	}
}

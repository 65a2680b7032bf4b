package call

import (
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

const defaultSTUN = "stun:stun.l.google.com:19302"

// newAPI wires the default interceptors (NACK, RTCP reports, TWCC) and
// generous ICE timeouts so a brief relay hiccup does not drop the call.
func newAPI(mediaEngine *webrtc.MediaEngine) (*webrtc.API, error) {
	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, err
	}
	se := webrtc.SettingEngine{}
	se.SetICETimeouts(30*time.Second, 120*time.Second, 2*time.Second)
	return webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
		webrtc.WithSettingEngine(se),
	), nil
}

func peerConfig(iceServers []string) webrtc.Configuration {
	if len(iceServers) == 0 {
		iceServers = []string{defaultSTUN}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: iceServers}},
	}
}

// newRecvOnlyPC creates a PeerConnection with default codecs and a single
// recvonly audio transceiver so the SDP carries an audio m-line.
func newRecvOnlyPC(label string, iceServers []string) (*webrtc.PeerConnection, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	api, err := newAPI(mediaEngine)
	if err != nil {
		return nil, err
	}
	pc, err := api.NewPeerConnection(peerConfig(iceServers))
	if err != nil {
		return nil, err
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		_ = pc.Close()
		return nil, err
	}
	log.Infof("CALL [%s]: peer connection ready (receive-only audio)", label)
	return pc, nil
}

//go:build !linux

package call

import "github.com/pion/webrtc/v4"

// initMediaPC creates a receive-only PeerConnection. Microphone capture via
// pion/mediadevices needs the Linux drivers, so captureAudio is ignored here.
func initMediaPC(label string, captureAudio bool, iceServers []string) (*webrtc.PeerConnection, func(), error) {
	if captureAudio {
		log.Infof("CALL [%s]: no local capture on this platform, receiving only", label)
	}
	pc, err := newRecvOnlyPC(label, iceServers)
	return pc, nil, err
}

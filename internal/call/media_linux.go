//go:build linux

package call

import (
	"fmt"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/webrtc/v4"
)

// initMediaPC creates the PeerConnection and, when captureAudio is set,
// attaches an Opus microphone track via pion/mediadevices (malgo on Linux).
// The returned func stops the local tracks.
func initMediaPC(label string, captureAudio bool, iceServers []string) (*webrtc.PeerConnection, func(), error) {
	if !captureAudio {
		pc, err := newRecvOnlyPC(label, iceServers)
		return pc, nil, err
	}

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, nil, err
	}
	codecSelector := mediadevices.NewCodecSelector(
		mediadevices.WithAudioEncoders(&opusParams),
	)

	mediaEngine := &webrtc.MediaEngine{}
	codecSelector.Populate(mediaEngine)

	api, err := newAPI(mediaEngine)
	if err != nil {
		return nil, nil, err
	}
	pc, err := api.NewPeerConnection(peerConfig(iceServers))
	if err != nil {
		return nil, nil, err
	}

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Audio: func(_ *mediadevices.MediaTrackConstraints) {},
		Codec: codecSelector,
	})
	if err != nil {
		_ = pc.Close()
		log.Warnf("CALL [%s]: GetUserMedia(audio) failed: %v", label, err)
		return nil, nil, fmt.Errorf("%w: %v", ErrMediaAccessDenied, err)
	}

	tracks := stream.GetTracks()
	closeFn := func() {
		for _, t := range tracks {
			t.Close()
		}
	}
	for _, track := range tracks {
		track.OnEnded(func(err error) {
			if err != nil {
				log.Warnf("CALL [%s]: local track ended: %v", label, err)
			}
		})
		if _, err := pc.AddTrack(track); err != nil {
			closeFn()
			_ = pc.Close()
			return nil, nil, fmt.Errorf("add audio track: %w", err)
		}
	}
	log.Infof("CALL [%s]: microphone captured (%d tracks)", label, len(tracks))
	return pc, closeFn, nil
}

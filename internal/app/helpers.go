// internal/app/helpers.go
package app

import (
	"slices"
	"strings"
	"time"

	"github.com/petervdpas/roomcall/internal/call"
	"github.com/petervdpas/roomcall/internal/config"
)

// NormalizeLocalViewer ensures the viewer only binds to localhost
// and returns listen addr and browser URL.
func NormalizeLocalViewer(cfgAddr string) (listenAddr string, url string) {
	a := strings.TrimSpace(cfgAddr)

	if strings.HasPrefix(a, ":") {
		a = "127.0.0.1" + a
	}
	if strings.HasPrefix(a, "0.0.0.0:") {
		a = "127.0.0.1:" + strings.TrimPrefix(a, "0.0.0.0:")
	}

	return a, "http://" + a
}

// callConfig maps the file config onto controller timings.
func callConfig(c config.Call) call.Config {
	cfg := call.DefaultConfig()
	cfg.OutgoingTimeout = c.OutgoingTimeout()
	cfg.IncomingTimeout = c.IncomingTimeout()
	cfg.ConnectTimeout = c.ConnectTimeout()
	cfg.InviteLifetime = c.InviteLifetime()
	cfg.CandidateBatch = c.CandidateBatch()
	return cfg
}

func engineOptions(c config.Call) call.EngineOptions {
	return call.EngineOptions{
		ICEServers:   append([]string(nil), c.ICEServers...),
		CaptureAudio: c.CaptureAudio,
	}
}

// userID is the configured Matrix-style id, or one derived from the peer id.
func userID(p config.Profile, peerID string) string {
	if p.UserID != "" {
		return p.UserID
	}
	return "@" + peerID
}

// restartNeeded reports whether next changes settings that are only read at
// startup.
func restartNeeded(prev, next config.Config) bool {
	return prev.Identity != next.Identity ||
		prev.Viewer != next.Viewer ||
		prev.Profile.UserID != next.Profile.UserID ||
		prev.P2P.ListenPort != next.P2P.ListenPort ||
		prev.P2P.MdnsTag != next.P2P.MdnsTag ||
		prev.P2P.HeartbeatSec != next.P2P.HeartbeatSec ||
		prev.P2P.MemberTTLSec != next.P2P.MemberTTLSec ||
		!slices.Equal(prev.P2P.BootstrapPeers, next.P2P.BootstrapPeers) ||
		prev.Call.HistoryLimit != next.Call.HistoryLimit
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func logBanner(peerDir, cfgPath string) {
	log.Info("────────────────────────────────────────")
	log.Info("roomcall peer scope")
	log.Infof(" Peer folder : %s", peerDir)
	log.Infof(" Config file : %s", cfgPath)
	log.Info("")
	log.Info(" This process represents ONE peer.")
	log.Info(" Different folder/config = different peer.")
	log.Info("────────────────────────────────────────")
}

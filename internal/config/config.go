package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/petervdpas/roomcall/internal/proto"
	"github.com/petervdpas/roomcall/internal/util"

	logging "github.com/ipfs/go-log/v2"
	ma "github.com/multiformats/go-multiaddr"
)

// FileName is the config file inside a peer directory.
const FileName = "roomcall.json"

type Config struct {
	Identity Identity `json:"identity"`
	P2P      P2P      `json:"p2p"`
	Profile  Profile  `json:"profile"`
	Rooms    []string `json:"rooms"`
	Call     Call     `json:"call"`
	Viewer   Viewer   `json:"viewer"`
	Log      Log      `json:"log"`
}

type Identity struct {
	KeyFile string `json:"key_file"`
}

type P2P struct {
	ListenPort     int      `json:"listen_port"`
	MdnsTag        string   `json:"mdns_tag"`
	BootstrapPeers []string `json:"bootstrap_peers"` // multiaddrs with /p2p/ suffix

	// Membership heartbeat on each room topic.
	HeartbeatSec int `json:"heartbeat_seconds"`
	MemberTTLSec int `json:"member_ttl_seconds"`
}

type Profile struct {
	// UserID defaults to "@<peer id>" when empty.
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

type Call struct {
	OutgoingTimeoutSec int      `json:"outgoing_timeout_seconds"`
	IncomingTimeoutSec int      `json:"incoming_timeout_seconds"`
	ConnectTimeoutSec  int      `json:"connect_timeout_seconds"`
	InviteLifetimeMs   int      `json:"invite_lifetime_ms"`
	CandidateBatchMs   int      `json:"candidate_batch_ms"`
	HistoryLimit       int      `json:"history_limit"`
	CaptureAudio       bool     `json:"capture_audio"`
	ICEServers         []string `json:"ice_servers"`
}

type Viewer struct {
	HTTPAddr string `json:"http_addr"`
}

type Log struct {
	Level      string            `json:"level"`
	Subsystems map[string]string `json:"subsystems"`
}

func Default() Config {
	return Config{
		Identity: Identity{
			KeyFile: "data/identity.key",
		},
		P2P: P2P{
			ListenPort:   0,
			MdnsTag:      proto.MdnsTag,
			HeartbeatSec: 10,
			MemberTTLSec: 30,
		},
		Rooms: []string{"!lobby"},
		Call: Call{
			OutgoingTimeoutSec: 60,
			IncomingTimeoutSec: 30,
			ConnectTimeoutSec:  30,
			InviteLifetimeMs:   60000,
			CandidateBatchMs:   500,
			HistoryLimit:       100,
			CaptureAudio:       true,
			ICEServers:         []string{"stun:stun.l.google.com:19302"},
		},
		Viewer: Viewer{
			HTTPAddr: "127.0.0.1:8790",
		},
		Log: Log{
			Level: "info",
		},
	}
}

func (c *Config) Validate() error {
	// Identity
	if strings.TrimSpace(c.Identity.KeyFile) == "" {
		return errors.New("identity.key_file is required")
	}

	// P2P
	if c.P2P.ListenPort < 0 || c.P2P.ListenPort > 65535 {
		return errors.New("p2p.listen_port must be 0..65535")
	}
	if strings.TrimSpace(c.P2P.MdnsTag) == "" {
		return errors.New("p2p.mdns_tag is required")
	}
	for _, s := range c.P2P.BootstrapPeers {
		addr, err := ma.NewMultiaddr(s)
		if err != nil {
			return fmt.Errorf("p2p.bootstrap_peers: %q: %w", s, err)
		}
		if _, err := addr.ValueForProtocol(ma.P_P2P); err != nil {
			return fmt.Errorf("p2p.bootstrap_peers: %q has no /p2p/ peer id", s)
		}
	}
	if c.P2P.HeartbeatSec <= 0 {
		return errors.New("p2p.heartbeat_seconds must be > 0")
	}
	if c.P2P.HeartbeatSec >= c.P2P.MemberTTLSec {
		return errors.New("p2p.heartbeat_seconds must be < p2p.member_ttl_seconds")
	}

	// Profile
	if c.Profile.UserID != "" && !strings.HasPrefix(c.Profile.UserID, "@") {
		return errors.New("profile.user_id must start with @")
	}

	// Rooms
	for _, r := range c.Rooms {
		if strings.TrimSpace(r) == "" {
			return errors.New("rooms must not contain empty ids")
		}
	}

	// Call
	if c.Call.OutgoingTimeoutSec <= 0 {
		return errors.New("call.outgoing_timeout_seconds must be > 0")
	}
	if c.Call.IncomingTimeoutSec <= 0 {
		return errors.New("call.incoming_timeout_seconds must be > 0")
	}
	if c.Call.ConnectTimeoutSec < 0 {
		return errors.New("call.connect_timeout_seconds must be >= 0")
	}
	if c.Call.InviteLifetimeMs <= 0 {
		return errors.New("call.invite_lifetime_ms must be > 0")
	}
	if c.Call.CandidateBatchMs <= 0 {
		return errors.New("call.candidate_batch_ms must be > 0")
	}
	if c.Call.HistoryLimit <= 0 {
		return errors.New("call.history_limit must be > 0")
	}
	for _, s := range c.Call.ICEServers {
		if !strings.HasPrefix(s, "stun:") && !strings.HasPrefix(s, "turn:") && !strings.HasPrefix(s, "turns:") {
			return fmt.Errorf("call.ice_servers: %q must be a stun: or turn: url", s)
		}
	}

	// Viewer
	if c.Viewer.HTTPAddr != "" {
		if _, _, err := net.SplitHostPort(c.Viewer.HTTPAddr); err != nil {
			return fmt.Errorf("viewer.http_addr: %w", err)
		}
	}

	// Log
	if _, err := logging.LevelFromString(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	for sub, lvl := range c.Log.Subsystems {
		if _, err := logging.LevelFromString(lvl); err != nil {
			return fmt.Errorf("log.subsystems.%s: %w", sub, err)
		}
	}

	return nil
}

// OutgoingTimeout and the helpers below convert configured numbers to durations.
func (c Call) OutgoingTimeout() time.Duration {
	return time.Duration(c.OutgoingTimeoutSec) * time.Second
}

func (c Call) IncomingTimeout() time.Duration {
	return time.Duration(c.IncomingTimeoutSec) * time.Second
}

func (c Call) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

func (c Call) InviteLifetime() time.Duration {
	return time.Duration(c.InviteLifetimeMs) * time.Millisecond
}

func (c Call) CandidateBatch() time.Duration {
	return time.Duration(c.CandidateBatchMs) * time.Millisecond
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Strip UTF-8 BOM if present (common when editing JSON on Windows).
	b = stripBOM(b)

	// Start from defaults so missing JSON fields remain initialized.
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	return util.WriteJSONFile(path, cfg)
}

// Ensure loads config if it exists; otherwise creates a default config file.
// Returns (cfg, createdNew, err).
func Ensure(path string) (Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	} else if !os.IsNotExist(err) {
		return Config{}, false, err
	}

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return Config{}, false, fmt.Errorf("create default config: %w", err)
	}
	return cfg, true, nil
}

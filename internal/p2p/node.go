package p2p

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/petervdpas/roomcall/internal/proto"
	"github.com/petervdpas/roomcall/internal/util"

	logging "github.com/ipfs/go-log/v2"
	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	ma "github.com/multiformats/go-multiaddr"
)

var log = logging.Logger("p2p")

func init() {
	// Dial failures and backoff errors go to stderr by default.
	logging.SetLogLevel("swarm2", "error")
	logging.SetLogLevel("autonat", "warn")
	logging.SetLogLevel("pubsub", "warn")
}

// Node is the libp2p host carrying room topics.
type Node struct {
	Host host.Host
	ps   *pubsub.PubSub
	mdns mdns.Service

	mu     sync.Mutex
	topics map[string]*pubsub.Topic

	startTime time.Time
}

type mdnsNotifee struct {
	h host.Host
}

func (n *mdnsNotifee) HandlePeerFound(pi peer.AddrInfo) {
	if pi.ID == n.h.ID() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), util.DefaultConnectTimeout)
	defer cancel()
	if err := n.h.Connect(ctx, pi); err != nil {
		log.Debugf("P2P: mdns connect %s: %v", pi.ID, err)
	}
}

// loadOrCreateKey loads a persistent identity key from disk,
// or generates a new Ed25519 key and saves it on first run.
func loadOrCreateKey(keyFile string) (crypto.PrivKey, bool, error) {
	data, err := os.ReadFile(keyFile)
	if err == nil {
		priv, err := crypto.UnmarshalPrivateKey(data)
		if err == nil {
			return priv, false, nil
		}
		log.Warnf("corrupt identity key at %s: %v (generating new key)", keyFile, err)
	}

	priv, _, err := crypto.GenerateEd25519Key(nil)
	if err != nil {
		return nil, false, err
	}

	raw, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, false, fmt.Errorf("marshal identity key: %w", err)
	}

	if dir := filepath.Dir(keyFile); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, false, fmt.Errorf("create key directory: %w", err)
		}
	}

	if err := os.WriteFile(keyFile, raw, 0600); err != nil {
		return nil, false, fmt.Errorf("save identity key: %w", err)
	}

	return priv, true, nil
}

// New starts a host listening on listenPort, LAN discovery under mdnsTag
// and a gossipsub router. An empty mdnsTag uses proto.MdnsTag.
func New(ctx context.Context, listenPort int, keyFile, mdnsTag string) (*Node, error) {
	priv, isNew, err := loadOrCreateKey(keyFile)
	if err != nil {
		return nil, err
	}
	if isNew {
		log.Infof("Generated new identity key: %s", keyFile)
	} else {
		log.Infof("Loaded identity key: %s", keyFile)
	}

	h, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", listenPort)),
	)
	if err != nil {
		return nil, err
	}

	if mdnsTag == "" {
		mdnsTag = proto.MdnsTag
	}
	md := mdns.NewMdnsService(h, mdnsTag, &mdnsNotifee{h: h})
	if err := md.Start(); err != nil {
		_ = h.Close()
		return nil, err
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		_ = md.Close()
		_ = h.Close()
		return nil, err
	}

	return &Node{
		Host:      h,
		ps:        ps,
		mdns:      md,
		topics:    map[string]*pubsub.Topic{},
		startTime: time.Now(),
	}, nil
}

func (n *Node) ID() string {
	return n.Host.ID().String()
}

// Addrs returns the full dialable addresses of this node (with /p2p/ suffix).
func (n *Node) Addrs() []string {
	self, err := ma.NewMultiaddr("/p2p/" + n.Host.ID().String())
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(n.Host.Addrs()))
	for _, a := range n.Host.Addrs() {
		out = append(out, a.Encapsulate(self).String())
	}
	return out
}

// Bootstrap dials each multiaddr (which must carry a /p2p/ component).
// It returns the number of peers connected; failures are logged.
func (n *Node) Bootstrap(ctx context.Context, addrs []string) int {
	connected := 0
	for _, s := range addrs {
		addr, err := ma.NewMultiaddr(s)
		if err != nil {
			log.Warnf("P2P: bad bootstrap addr %q: %v", s, err)
			continue
		}
		pi, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			log.Warnf("P2P: bootstrap addr %q has no peer id: %v", s, err)
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, util.DefaultConnectTimeout)
		err = n.Host.Connect(cctx, *pi)
		cancel()
		if err != nil {
			log.Warnf("P2P: bootstrap %s: %v", pi.ID, err)
			continue
		}
		log.Infof("P2P: bootstrapped to %s", pi.ID)
		connected++
	}
	return connected
}

// Topic joins the named gossipsub topic once and returns the shared handle.
func (n *Node) Topic(name string) (*pubsub.Topic, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.topics[name]; ok {
		return t, nil
	}
	t, err := n.ps.Join(name)
	if err != nil {
		return nil, fmt.Errorf("join topic %s: %w", name, err)
	}
	n.topics[name] = t
	return t, nil
}

// Snapshot reports connection details for the diagnostics endpoint.
func (n *Node) Snapshot() map[string]any {
	var addrs []string
	for _, a := range n.Host.Addrs() {
		addrs = append(addrs, a.String())
	}
	var connected []map[string]any
	for _, pid := range n.Host.Network().Peers() {
		for _, c := range n.Host.Network().ConnsToPeer(pid) {
			connected = append(connected, map[string]any{
				"peer_id": pid.String(),
				"addr":    c.RemoteMultiaddr().String(),
				"dir":     dirString(c.Stat().Direction),
			})
		}
	}
	n.mu.Lock()
	topics := make([]string, 0, len(n.topics))
	for name := range n.topics {
		topics = append(topics, name)
	}
	n.mu.Unlock()
	return map[string]any{
		"peer_id":         n.ID(),
		"addrs":           addrs,
		"connected_peers": connected,
		"topics":          topics,
		"uptime":          time.Since(n.startTime).Truncate(time.Second).String(),
	}
}

func dirString(d network.Direction) string {
	switch d {
	case network.DirInbound:
		return "inbound"
	case network.DirOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

func (n *Node) Close() error {
	n.mu.Lock()
	for name, t := range n.topics {
		_ = t.Close()
		delete(n.topics, name)
	}
	n.mu.Unlock()
	if n.mdns != nil {
		_ = n.mdns.Close()
	}
	return n.Host.Close()
}

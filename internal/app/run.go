package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petervdpas/roomcall/internal/call"
	"github.com/petervdpas/roomcall/internal/config"
	"github.com/petervdpas/roomcall/internal/p2p"
	"github.com/petervdpas/roomcall/internal/room"
	"github.com/petervdpas/roomcall/internal/signal"
	"github.com/petervdpas/roomcall/internal/state"
	"github.com/petervdpas/roomcall/internal/storage"
	"github.com/petervdpas/roomcall/internal/util"
	"github.com/petervdpas/roomcall/internal/viewer"
)

type Options struct {
	PeerDir string
	CfgPath string
	Cfg     config.Config
}

// Run starts one peer and blocks until ctx is cancelled.
func Run(ctx context.Context, opt Options) error {
	cfg := opt.Cfg
	applyLogLevels(cfg.Log)

	logBuf := viewer.NewLogBuffer(800)
	stopCapture := logBuf.Capture()
	defer stopCapture()

	logBanner(opt.PeerDir, opt.CfgPath)

	var cur atomic.Pointer[config.Config]
	cur.Store(&cfg)

	// ── P2P node
	keyPath := util.ResolvePath(opt.PeerDir, cfg.Identity.KeyFile)
	node, err := p2p.New(ctx, cfg.P2P.ListenPort, keyPath, cfg.P2P.MdnsTag)
	if err != nil {
		return err
	}
	defer node.Close()

	if len(cfg.P2P.BootstrapPeers) > 0 {
		n := node.Bootstrap(ctx, cfg.P2P.BootstrapPeers)
		log.Infof("APP: connected to %d/%d bootstrap peers", n, len(cfg.P2P.BootstrapPeers))
	}

	// ── Database
	db, err := storage.Open(opt.PeerDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	_ = db.SetMeta("peer_id", node.ID())

	// ── Room relay
	self := userID(cfg.Profile, node.ID())
	members := state.NewMemberTable()
	relay := room.NewPubSub(node, self, cfg.Profile.DisplayName, cfg.Profile.Avatar, members)
	log.Infof("APP: peer id %s, user %s", node.ID(), self)

	// ── Call controller
	history := call.NewRecorder(db, cfg.Call.HistoryLimit)
	engines := call.NewPionFactory(func() call.EngineOptions {
		return engineOptions(cur.Load().Call)
	})
	calls := call.New(callConfig(cfg.Call), signal.NewAdapter(relay), relay, engines, history)
	defer calls.Close()

	for _, roomID := range cfg.Rooms {
		calls.Watch(roomID)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		relay.RunHeartbeat(ctx, cfg.Rooms, seconds(cfg.P2P.HeartbeatSec), seconds(cfg.P2P.MemberTTLSec))
	}()
	go func() {
		defer wg.Done()
		logMembers(ctx, members)
	}()
	// Heartbeat sends its leave on the way out; wait for it before the
	// node closes.
	defer wg.Wait()

	// ── Config reload
	err = config.Watch(ctx, opt.CfgPath, func(next config.Config) {
		prev := cur.Swap(&next)
		applyLogLevels(next.Log)
		relay.SetProfile(next.Profile.DisplayName, next.Profile.Avatar)
		for _, roomID := range next.Rooms {
			calls.Watch(roomID)
		}
		if restartNeeded(*prev, next) {
			log.Warnf("APP: identity, p2p, viewer, user_id and history_limit changes apply after restart")
		}
	})
	if err != nil {
		log.Warnf("APP: config watch disabled: %v", err)
	}

	// ── Viewer
	if cfg.Viewer.HTTPAddr != "" {
		addr, url := NormalizeLocalViewer(cfg.Viewer.HTTPAddr)
		go func() {
			err := viewer.Start(ctx, addr, viewer.Viewer{
				Calls: calls,
				Logs:  logBuf,
				Self: func() map[string]any {
					c := cur.Load()
					return map[string]any{
						"user_id":      self,
						"display_name": c.Profile.DisplayName,
						"rooms":        c.Rooms,
						"node":         node.Snapshot(),
					}
				},
			})
			if err != nil {
				log.Errorf("APP: viewer: %v", err)
			}
		}()
		log.Infof("APP: control API at %s", url)
	}

	<-ctx.Done()
	log.Info("APP: shutting down")
	return nil
}

// logMembers reports joins and leaves seen on the room topics.
func logMembers(ctx context.Context, members *state.MemberTable) {
	ch := members.Subscribe()
	defer members.Unsubscribe(ch)
	seen := map[[2]string]bool{}
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			switch {
			case evt.Type == "update" && evt.Member != nil:
				key := [2]string{evt.RoomID, evt.Member.UserID}
				if !seen[key] {
					seen[key] = true
					log.Infof("ROOM [%s]: %s joined", evt.RoomID, evt.Member.UserID)
				}
			case evt.Type == "remove":
				delete(seen, [2]string{evt.RoomID, evt.UserID})
				log.Infof("ROOM [%s]: %s left", evt.RoomID, evt.UserID)
			}
		}
	}
}

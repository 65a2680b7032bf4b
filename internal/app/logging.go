package app

import (
	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/roomcall/internal/config"
)

var log = logging.Logger("app")

// subsystems are the loggers this module owns; the global level only touches
// these so libp2p stays as quiet as p2p init left it.
var subsystems = []string{"app", "call", "signal", "room", "p2p", "config", "viewer"}

// applyLogLevels sets the configured level on our subsystems, then applies
// per-subsystem overrides (which may name any go-log subsystem).
func applyLogLevels(c config.Log) {
	level := c.Level
	if level == "" {
		level = "info"
	}
	for _, sub := range subsystems {
		if err := logging.SetLogLevel(sub, level); err != nil {
			log.Warnf("APP: log level %s=%s: %v", sub, level, err)
		}
	}
	for sub, lvl := range c.Subsystems {
		if err := logging.SetLogLevel(sub, lvl); err != nil {
			log.Warnf("APP: log level %s=%s: %v", sub, lvl, err)
		}
	}
}

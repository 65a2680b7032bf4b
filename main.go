// main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/roomcall/internal/app"
	"github.com/petervdpas/roomcall/internal/config"
)

var log = logging.Logger("app")

var (
	showHelp = flag.Bool("h", false, "Show help")
	version  = flag.Bool("version", false, "Show version")
)

// appVersion is set at build time via -ldflags "-X main.appVersion=x.y.z"
var appVersion = "dev"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("roomcall v%s\n", appVersion)
		return
	}

	if *showHelp {
		showUsage()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "peer":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Error: peer command requires directory path")
			fmt.Fprintln(os.Stderr, "Usage: roomcall peer <peer-directory>")
			os.Exit(1)
		}
		runCLIPeer(args[1])

	case "demo":
		runCLIDemo(args[1:])

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", args[0])
		fmt.Fprintln(os.Stderr)
		showUsage()
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("Shutting down gracefully...")
		cancel()
	}()
	return ctx, cancel
}

func runCLIPeer(peerDirArg string) {
	absDir, err := filepath.Abs(peerDirArg)
	if err != nil {
		log.Fatalf("Invalid peer directory: %v", err)
	}

	if err := os.MkdirAll(absDir, 0o755); err != nil {
		log.Fatalf("Peer directory: %v", err)
	}

	cfgPath := filepath.Join(absDir, config.FileName)
	cfg, created, err := config.Ensure(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	printPeerBanner(absDir, cfgPath, cfg, created)

	ctx, cancel := signalContext()
	defer cancel()

	if err := app.Run(ctx, app.Options{
		PeerDir: absDir,
		CfgPath: cfgPath,
		Cfg:     cfg,
	}); err != nil {
		log.Fatalf("Peer failed: %v", err)
	}
}

func runCLIDemo(args []string) {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	talk := fs.Duration("talk", 3*time.Second, "How long the call stays connected")
	_ = fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()

	res, err := app.RunDemo(ctx, app.DemoOptions{Talk: *talk})
	if err != nil {
		log.Fatalf("Demo failed: %v", err)
	}
	fmt.Printf("Call %s: %s, %ds\n", res.CallID, res.Caller.Status, res.Caller.Duration)
}

func showUsage() {
	fmt.Println("roomcall - 1:1 voice calls signaled through shared rooms")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  roomcall peer <directory>   Run a peer")
	fmt.Println("  roomcall demo [-talk 3s]    Place one call between two in-process users")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  peer <directory>")
	fmt.Printf("        Run a peer from the specified directory. A default %s\n", config.FileName)
	fmt.Println("        is created on first start.")
	fmt.Println()
	fmt.Println("  demo")
	fmt.Println("        Connect two local users over loopback WebRTC and hang up.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h        Show this help message")
	fmt.Println("  -version  Show version information")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  roomcall peer ./peers/alice")
	fmt.Println("  curl -X POST localhost:8790/api/call/start -d '{\"room_id\":\"!lobby\"}'")
}

func printPeerBanner(peerDir, cfgPath string, cfg config.Config, created bool) {
	fmt.Println("╔════════════════════════════════════════════════════════╗")
	fmt.Println("║                   roomcall peer                        ║")
	fmt.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Peer Directory: %s\n", peerDir)
	fmt.Printf("Config File:    %s", cfgPath)
	if created {
		fmt.Print(" (created)")
	}
	fmt.Println()
	if cfg.Profile.DisplayName != "" {
		fmt.Printf("Display Name:   %s\n", cfg.Profile.DisplayName)
	}
	fmt.Printf("Rooms:          %v\n", cfg.Rooms)
	if cfg.Viewer.HTTPAddr != "" {
		fmt.Printf("Control API:    http://%s\n", cfg.Viewer.HTTPAddr)
	}
	fmt.Println()
}

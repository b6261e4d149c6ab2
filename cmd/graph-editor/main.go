package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/graph-editor/pkg/config"
	"github.com/ritzau/graph-editor/pkg/editor"
	"github.com/ritzau/graph-editor/pkg/logging"
	"github.com/ritzau/graph-editor/pkg/model"
	"github.com/ritzau/graph-editor/pkg/pubsub"
	"github.com/ritzau/graph-editor/pkg/store"
	"github.com/ritzau/graph-editor/pkg/watcher"
	"github.com/ritzau/graph-editor/pkg/web"
)

func main() {
	f := pflag.NewFlagSet("graph-editor", pflag.ExitOnError)
	f.Int("port", 8080, "Port for the web server")
	f.Bool("open", true, "Open the editor in a browser")
	f.Bool("watch", true, "Reload the style section when the config file changes")
	f.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("log-json", false, "Log JSON lines instead of the compact format")
	f.String("config", config.DefaultFile, "Path to the TOML config file")
	f.String("ids", "counter", "Node ID scheme: counter (n1, n2, ...) or uuid")
	if err := f.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logging.Configure(logging.Options{Level: level, JSON: cfg.Log.JSON})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var storeOpts []store.Option
	if cfg.IDs == "uuid" {
		storeOpts = append(storeOpts, store.WithIDSource(model.UUIDSource{}))
	}

	publisher := pubsub.NewSSEPublisher()
	defer publisher.Close()

	// graph is unbuffered: the server opens each stream with a full frame
	publisher.ConfigureTopic(pubsub.TopicStyle, pubsub.TopicConfig{
		BufferSize: 1,
	})

	shell := editor.New(store.New(storeOpts...),
		editor.WithDefaultText(cfg.Node.Text),
		editor.WithSpawnRegion(editor.Region{Width: cfg.Spawn.Width, Height: cfg.Spawn.Height}),
		editor.WithStyle(cfg.Style),
		editor.WithPublisher(publisher),
	)
	go shell.Run(ctx)

	if cfg.Watch {
		startStyleReload(ctx, cfg.ConfigFile, shell)
	}

	server := web.NewServer(shell, publisher)
	url := fmt.Sprintf("http://localhost:%d", cfg.Port)
	logging.Info("starting web server", "url", url)

	errc := make(chan error, 1)
	go func() { errc <- server.Start(ctx, cfg.Port) }()

	if cfg.Open {
		// Wait a moment for server to start
		time.Sleep(300 * time.Millisecond)
		openBrowser(url)
	}

	if err := <-errc; err != nil {
		logging.Fatal("web server stopped", "error", err)
	}
	logging.Info("shut down")
}

// startStyleReload pushes the style section of the config file to the shell
// whenever the file changes. Failure to watch is not fatal.
func startStyleReload(ctx context.Context, path string, shell *editor.Shell) {
	fw, err := watcher.NewFileWatcher(path)
	if err != nil {
		logging.Warn("style reload disabled", "path", path, "error", err)
		return
	}
	fw.Start(ctx)

	debouncer := watcher.NewDebouncer(fw.Events(), 200*time.Millisecond, 2*time.Second)
	debouncer.Start(ctx)

	reloader := watcher.Reloader[model.StyleConfig]{
		Load:  config.LoadStyle,
		Apply: shell.UpdateStyle,
	}
	go reloader.Run(ctx, debouncer.Output())
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on this platform", "os", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}

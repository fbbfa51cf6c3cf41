// Command presenter opens a window and draws a spinning mesh into it until
// the window is closed. It takes no flags; settings come from
// presenter.toml or the file named by PRESENTER_CONFIG.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/vkngwrapper/presenter/internal/app"
	"github.com/vkngwrapper/presenter/internal/config"
	"github.com/vkngwrapper/presenter/internal/logging"
	"github.com/vkngwrapper/presenter/present"
)

// failure is the exit code for anything other than a clean close.
const failure = -1

func main() {
	// SDL and the Vulkan calls made through it must stay on the main thread
	runtime.LockOSThread()

	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println(err)
		return failure
	}

	log, err := logging.Install(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Println(err)
		return failure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = app.Run(ctx, log, cfg)
	if err != nil {
		if present.IsFatal(err) {
			log.Error("frame failed", slog.String("stack", fmt.Sprintf("%+v", err)))
		}
		fmt.Println(err)
		return failure
	}

	return 0
}

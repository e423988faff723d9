package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/leeineian/biochemie/home"
	_ "github.com/leeineian/biochemie/proc"
	"github.com/leeineian/biochemie/sys"
)

const (
	MsgConfigFailedToLoad  = "Failed to load config: %v"
	MsgBotStarting         = "Starting %s %s..."
	MsgBotShutdown         = "Shutting down %s..."
	MsgBotClientCreateFail = "failed to create Discord client after %d attempts: %w"
	MsgBotClientRetry      = "Failed to create Discord client (attempt %d/%d): %v. Retrying in %v..."
	MsgBotRegisterFail     = "Command registration failed: %v"
	MsgBotGatewayFail      = "failed to open gateway: %w"
	MsgDaemonShutdown      = "Shutting down all daemons..."

	clientAttempts   = 5
	clientRetryDelay = 5 * time.Second
	shutdownTimeout  = 10 * time.Second
)

// initialExtensions are loaded at startup, in order.
var initialExtensions = []string{"developer", "informatic"}

func main() {
	silent := flag.Bool("silent", false, "Disable all log output")
	skipReg := flag.Bool("skip-reg", false, "Skip command registration")
	flag.Parse()

	cfg, err := sys.LoadConfig()
	if err != nil {
		bootLogger, _ := sys.NewLogger(sys.LoggerOptions{Silent: *silent})
		sys.LogFatal(bootLogger, nil, fmt.Sprintf(MsgConfigFailedToLoad, err))
	}

	logger, closeLog := sys.NewLogger(sys.LoggerOptions{
		Silent:  *silent || cfg.Silent,
		LogFile: cfg.LogFile,
	})
	defer closeLog()
	slog.SetDefault(logger)

	if err := run(cfg, logger, *skipReg); err != nil {
		sys.LogFatal(logger, closeLog, err.Error())
	}
}

func run(cfg *sys.Config, logger *slog.Logger, skipReg bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	logger.Info(fmt.Sprintf(MsgBotStarting, sys.ProjectName, sys.Version))

	b := sys.New(ctx, cfg, logger)

	// Create disgo client with retries for network resilience
	for i := 1; ; i++ {
		err := b.Connect()
		if err == nil {
			break
		}
		if i == clientAttempts {
			return fmt.Errorf(MsgBotClientCreateFail, i, err)
		}
		logger.Warn(fmt.Sprintf(MsgBotClientRetry, i, clientAttempts, err, clientRetryDelay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(clientRetryDelay):
		}
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		b.Client.Close(closeCtx)
	}()

	if err := b.FetchApplicationInfo(ctx); err != nil {
		logger.Warn(fmt.Sprintf(sys.MsgAppInfoFail, err))
	}

	b.LoadExtensions(initialExtensions...)

	if !skipReg {
		if err := b.Sync().Startup(ctx, cfg.GuildID); err != nil {
			logger.Error(fmt.Sprintf(MsgBotRegisterFail, err))
		}
	} else {
		logger.Info(sys.MsgSyncSkipped)
	}

	if err := b.Client.OpenGateway(b.Context()); err != nil {
		return fmt.Errorf(MsgBotGatewayFail, err)
	}

	<-b.Context().Done()

	logger.Info(MsgDaemonShutdown)
	b.Views.StopAll()
	b.Daemons.Shutdown()

	logger.Info(fmt.Sprintf(MsgBotShutdown, sys.ProjectName))
	return nil
}

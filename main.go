package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	tb "gopkg.in/telebot.v3"

	"github.com/graynk/magikbot/bot"
	"github.com/graynk/magikbot/config"
	"github.com/graynk/magikbot/distorters"
	"github.com/graynk/magikbot/stats"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serveCmd := newServeCmd()
	root := &cobra.Command{
		Use:          "magikbot",
		Short:        "Telegram bot that runs ffmpeg and liquid rescale on your media",
		SilenceUsage: true,
		RunE:         serveCmd.RunE,
	}
	root.AddCommand(serveCmd, newMagikCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start polling Telegram for commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Infow("starting", "config", cfg.String())

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create upload dir")
	}

	var db *stats.MagikDB
	if cfg.StatsDB != "" {
		db, err = stats.InitDB(cfg.StatsDB)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	b, err := tb.NewBot(tb.Settings{
		Token:  cfg.BotToken,
		Poller: &tb.LongPoller{Timeout: cfg.PollTimeout},
		OnError: func(err error, c tb.Context) {
			logger.Errorw("telebot error", "error", err)
		},
	})
	if err != nil {
		return errors.WithStack(err)
	}

	magik := bot.NewMagikBot(cfg, b, bot.NewMemberChecker(b), db, logger)
	magik.Register(b)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("stopping")
		b.Stop()
	}()

	logger.Infow("polling", "bot", b.Me.Username)
	b.Start()
	magik.Shutdown()
	return nil
}

func newMagikCmd() *cobra.Command {
	var magickPath string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "magik <input> <output.png>",
		Short: "Liquid rescale a local image, no bot involved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.WithStack(err)
			}
			warped, err := distorters.NewMagik(magickPath, timeout).Distort(cmd.Context(), data)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], warped.PNG, 0o644); err != nil {
				return errors.WithStack(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d\n", args[1], warped.Size.X, warped.Size.Y)
			return nil
		},
	}
	cmd.Flags().StringVar(&magickPath, "magick", "convert", "ImageMagick binary")
	cmd.Flags().DurationVar(&timeout, "timeout", distorters.DefaultMagikTimeout, "give up after this long")
	return cmd
}

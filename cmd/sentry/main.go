package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soundsentry/soundsentry/audio"
	"github.com/soundsentry/soundsentry/config"
	"github.com/soundsentry/soundsentry/infer"
	"github.com/soundsentry/soundsentry/logging"
	"github.com/soundsentry/soundsentry/pipeline"
)

var (
	cfgPath   string
	modelPath string
	verbose   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sentry",
		Short: "On-device sound event classifier",
		Long: `sentry listens on the default microphone, converts each captured frame
into a normalized mel spectrogram and classifies it against a configured
set of sound events.`,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to yaml config (defaults apply when omitted)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Run the capture and classification loop until interrupted",
		RunE:  runListen,
	}
	listenCmd.Flags().StringVarP(&modelPath, "model", "m", "", "path to yaml model weights (required)")
	_ = listenCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(listenCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runListen(cmd *cobra.Command, args []string) error {
	if verbose {
		logging.SetLevel(logging.DebugLevel)
	}
	log := logging.GetGlobalLogger()

	cfg := config.DefaultConfig()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	engine, err := infer.LoadLinearEngine(modelPath)
	if err != nil {
		return err
	}

	mic, err := audio.NewMicSource(cfg.SampleRate)
	if err != nil {
		return err
	}
	defer mic.Close()

	p, err := pipeline.New(cfg, mic, engine, &consolePresenter{log: log}, log)
	if err != nil {
		return err
	}

	log.Info("listening", logging.Fields{
		"sample_rate": cfg.SampleRate,
		"buffer":      cfg.BufferSize(),
		"classes":     cfg.Labels,
	})
	if err := p.SelfTest(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutting down")
	return nil
}

// consolePresenter logs cycle outcomes through the global logger.
type consolePresenter struct {
	log logging.Logger
}

func (cp *consolePresenter) Present(c pipeline.Cycle) {
	switch c.Status {
	case pipeline.StatusClassified:
		cp.log.Info("sound recognized", logging.Fields{
			"label":      c.Result.Label,
			"score":      c.Result.Score,
			"confidence": c.Result.Tier.String(),
			"scores":     c.Result.Scores,
		})
	case pipeline.StatusSkippedSilence:
		cp.log.Debug("silence", logging.Fields{
			"non_zero": c.Stats.NonZero,
			"samples":  c.Stats.Len,
		})
	default:
		cp.log.Error(c.Err, "cycle failed", logging.Fields{
			"status": c.Status.String(),
		})
	}
}

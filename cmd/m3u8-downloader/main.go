// Command m3u8-downloader downloads an HLS playlist and reassembles its
// segments into a single playable media file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/seppedelanghe/m3u8-downloader/internal/config"
	"github.com/seppedelanghe/m3u8-downloader/internal/manifest"
	"github.com/seppedelanghe/m3u8-downloader/internal/media"
	"github.com/seppedelanghe/m3u8-downloader/internal/pipeline"
	"github.com/seppedelanghe/m3u8-downloader/internal/preview"
	"github.com/seppedelanghe/m3u8-downloader/internal/telemetry"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := config.Default()
	var configPath string

	cmd := &cobra.Command{
		Use:          "m3u8-downloader",
		Short:        "Download an m3u8 playlist into a single media file",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags, configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&flags.URL, "url", "", "m3u8 playlist URL (required)")
	cmd.Flags().StringVar(&flags.Out, "out", "", "output file path (required)")
	cmd.Flags().StringVar(&flags.FourCC, "fourcc", flags.FourCC, "output codec tag")
	cmd.Flags().IntVar(&flags.Threads, "threads", flags.Threads, "segments fetched per batch")
	cmd.Flags().BoolVar(&flags.View, "view", false, "show a live preview while downloading")
	cmd.Flags().StringVar(&flags.HeadersFile, "headers", "", "JSON file with extra HTTP headers")
	cmd.Flags().StringVar(&flags.MQTTBroker, "mqtt-broker", "", "MQTT broker for progress telemetry")
	cmd.Flags().BoolVar(&flags.Debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")

	return cmd
}

// resolveConfig layers command-line flags over the YAML file: a flag the
// user set explicitly wins, everything else comes from the file.
func resolveConfig(cmd *cobra.Command, flags config.Config, configPath string) (config.Config, error) {
	cfg := flags
	if configPath != "" {
		fileCfg, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, err
		}

		if !cmd.Flags().Changed("url") {
			cfg.URL = fileCfg.URL
		}
		if !cmd.Flags().Changed("out") {
			cfg.Out = fileCfg.Out
		}
		if !cmd.Flags().Changed("fourcc") {
			cfg.FourCC = fileCfg.FourCC
		}
		if !cmd.Flags().Changed("threads") {
			cfg.Threads = fileCfg.Threads
		}
		if !cmd.Flags().Changed("view") {
			cfg.View = fileCfg.View
		}
		if !cmd.Flags().Changed("headers") {
			cfg.HeadersFile = fileCfg.HeadersFile
		}
		if !cmd.Flags().Changed("mqtt-broker") {
			cfg.MQTTBroker = fileCfg.MQTTBroker
		}
		if !cmd.Flags().Changed("debug") {
			cfg.Debug = fileCfg.Debug
		}
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config) error {
	setupLogging(cfg.Debug)

	if err := media.ValidateFourCC(cfg.FourCC); err != nil {
		return err
	}

	headers, err := manifest.LoadHeaders(cfg.HeadersFile)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := slog.Default().With("run_id", runID)

	deps := pipeline.Deps{
		Loader: manifest.NewLoader(headers),
		Opener: gstDecoder{},
		Sink:   gstSinkOpener{},
	}
	if cfg.View {
		deps.Viewer = gstViewerOpener{}
	}

	if cfg.MQTTBroker != "" {
		emitter, err := telemetry.NewEmitter(cfg.MQTTBroker, runID)
		if err != nil {
			return err
		}
		if err := emitter.Connect(ctx); err != nil {
			return err
		}
		defer emitter.Close()
		deps.Emitter = emitter
	}

	p, err := pipeline.New(pipeline.Config{
		ManifestURL: cfg.URL,
		OutputPath:  cfg.Out,
		FourCC:      cfg.FourCC,
		Parallelism: cfg.Threads,
		LivePreview: cfg.View,
		RunID:       runID,
	}, deps)
	if err != nil {
		return err
	}

	log.Info("starting download",
		"url", cfg.URL,
		"out", cfg.Out,
		"fourcc", cfg.FourCC,
		"threads", cfg.Threads,
		"view", cfg.View,
	)

	stats, err := p.Run(ctx)
	if err != nil {
		return err
	}

	log.Info("saved",
		"out", cfg.Out,
		"segments", stats.Segments,
		"frames", stats.FramesWritten,
		"elapsed", stats.Elapsed,
	)
	return nil
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// gstDecoder adapts the GStreamer decode session to the pipeline's
// SessionOpener.
type gstDecoder struct{}

func (gstDecoder) Open(url string) (pipeline.DecodeSession, error) {
	return media.OpenSession(url)
}

// gstSinkOpener adapts the GStreamer encode writer to the pipeline's
// SinkOpener.
type gstSinkOpener struct{}

func (gstSinkOpener) OpenSink(path, fourcc string, info media.StreamInfo) (pipeline.FrameSink, error) {
	return media.OpenWriter(path, fourcc, info)
}

// gstViewerOpener adapts the preview window to the pipeline's
// ViewerOpener.
type gstViewerOpener struct{}

func (gstViewerOpener) OpenViewer(info media.StreamInfo) (pipeline.Viewer, error) {
	return preview.Open(info)
}

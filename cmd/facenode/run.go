package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facenode/internal/config"
	"github.com/teslashibe/go-facenode/internal/log"
	"github.com/teslashibe/go-facenode/pkg/detection"
	"github.com/teslashibe/go-facenode/pkg/emitter"
	"github.com/teslashibe/go-facenode/pkg/facedetect"
	"github.com/teslashibe/go-facenode/pkg/source"
	"github.com/teslashibe/go-facenode/pkg/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the node: HTTP/websocket server, optional MQTT and upstream frame source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runNode(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runNode(ctx context.Context, cfg config.Config) error {
	logger := log.With("component", "facenode")

	detector, err := detection.NewYuNet(cfg.Detector, log.L())
	if err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	defer detector.Close()

	srv := web.NewServer(cfg.Listen, log.L())
	publishers := facedetect.MultiPublisher{srv}

	if cfg.MQTT.Enabled {
		mq, err := emitter.New(cfg.MQTT.Config, log.L())
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		if err := mq.Connect(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer mq.Disconnect()
		publishers = append(publishers, mq)
	}

	pipeline, err := facedetect.New(detector, publishers, facedetect.WithLogger(log.L()))
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	defer pipeline.Close()

	srv.SetProcessor(pipeline, detection.FrameFromJPEG)

	if cfg.Source.Enabled {
		src, err := source.New(cfg.Source.Config, detection.FrameFromJPEG, log.L())
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
		go func() {
			err := src.Run(ctx, func(frame facedetect.Frame) error {
				_, err := pipeline.Process(frame)
				return err
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("frame source stopped", "error", err)
			}
		}()
	}

	logger.Info("facenode running",
		"listen", cfg.Listen,
		"mqtt", cfg.MQTT.Enabled,
		"source", cfg.Source.Enabled,
		"threshold", facedetect.ConfidenceThreshold,
	)

	if err := srv.Start(ctx); err != nil {
		return err
	}

	stats := pipeline.Stats()
	logger.Info("facenode stopped",
		"frames", stats.Frames,
		"face_events", stats.FaceEvents,
		"noface_events", stats.NoFaceEvents,
	)
	return nil
}

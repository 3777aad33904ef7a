package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facenode/internal/httpc"
	"github.com/teslashibe/go-facenode/internal/log"
	"github.com/teslashibe/go-facenode/pkg/detection"
	"github.com/teslashibe/go-facenode/pkg/facedetect"
	"github.com/teslashibe/go-facenode/pkg/protocol"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image_path|url>",
	Short: "Detect faces in one image and print the resulting message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runDetect(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(ctx context.Context, target string, out io.Writer) error {
	data, err := readImage(ctx, target)
	if err != nil {
		return err
	}

	frame, err := detection.FrameFromJPEG(data, facedetect.Header{Seq: 1, FrameID: uuid.NewString()})
	if err != nil {
		return fmt.Errorf("decode %s: %w", target, err)
	}

	detector, err := detection.NewYuNet(cfg.Detector, log.L())
	if err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	defer detector.Close()

	return detectFrame(detector, frame, out)
}

// detectFrame runs a single frame through a fresh pipeline and writes the
// published message as indented JSON.
func detectFrame(detector facedetect.Detector, frame facedetect.Frame, out io.Writer) error {
	var msg *protocol.Message
	publisher := facedetect.PublisherFunc(func(ev facedetect.Event) error {
		var err error
		msg, err = protocol.NewEventMessage(ev)
		return err
	})

	pipeline, err := facedetect.New(detector, publisher, facedetect.WithLogger(log.L()))
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	defer pipeline.Close()

	if _, err := pipeline.Process(frame); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(msg)
}

func readImage(ctx context.Context, target string) ([]byte, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		data, err := httpc.Fetch(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("fetch image: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

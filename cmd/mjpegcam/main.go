// Command mjpegcam captures Motion-JPEG frames from a V4L2 capture device
// and republishes them over HTTP using the multipart/x-mixed-replace
// "MJPEG-over-HTTP" convention. It is the process glue around
// internal/engine (capture) and internal/httpserver (fan-out): flag
// parsing, device-enumeration pretty-printing, log-sink selection, and
// SIGINT-triggered orderly shutdown.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mjpegcam/internal/config"
	"mjpegcam/internal/engine"
	"mjpegcam/internal/httpserver"
	"mjpegcam/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mjpegcam: load config: %v\n", err)
		return 1
	}

	var listDevices bool
	device := flag.String("d", cfg.Device, "capture device path")
	flag.BoolVar(&listDevices, "l", false, "list V4L2 capture devices and exit")
	flag.Parse()

	logger := logging.New("mjpegcam")

	if listDevices {
		if err := engine.DescribeDevices(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "mjpegcam: list devices: %v\n", err)
			return 1
		}
		return 0
	}

	server := httpserver.NewServer(
		fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.Port),
		logger,
		faviconSource(),
	)

	cap := engine.New(engine.Config{
		DevicePath: *device,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Sink:       server,
		Logger:     logger,
	})

	v4l2Err := cap.Start()
	mjpegErr := server.Start()

	v4l2RC, mjpegRC := rcOf(v4l2Err), rcOf(mjpegErr)
	fmt.Printf("v4l2:%d, mjpeg:%d\n", v4l2RC, mjpegRC)
	if v4l2Err != nil {
		logger.Error().Err(v4l2Err).Msg("capture engine failed to start")
	}
	if mjpegErr != nil {
		logger.Error().Err(mjpegErr).Msg("mjpeg server failed to start")
	}

	if v4l2Err != nil || mjpegErr != nil {
		_ = cap.Stop()
		_ = server.Stop()
		return 1
	}

	logger.Info().
		Str("card", cap.Capability().Card).
		Str("driver", cap.Capability().Driver).
		Stringer("format", cap.Format()).
		Msg("negotiated capture format")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	<-sigCh

	logger.Info().Msg("shutting down")

	// Orderly shutdown: the producer stops first, then the server joins
	// its clients.
	if err := cap.Stop(); err != nil {
		logger.Error().Err(err).Msg("capture engine stop")
	}
	if err := server.Stop(); err != nil {
		logger.Error().Err(err).Msg("mjpeg server stop")
	}

	return 0
}

func rcOf(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

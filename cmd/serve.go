package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tonal/logging"
	"github.com/RyanBlaney/sonido-tonal/server"
)

var (
	serveSource sourceFlags
	serveListen string
	servePath   string
	serveStatsd string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Broadcast snapshots to websocket clients",
	Long: `Runs the analysis engine and serves its snapshots:
  GET <path>       websocket stream of JSON snapshots
  GET /snapshot    latest snapshot
  GET /healthz     engine state and client count`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveSource.wav, "wav", "", "WAV file to play back")
	serveCmd.Flags().BoolVar(&serveSource.capture, "capture", false, "capture from an input device")
	serveCmd.Flags().StringVar(&serveSource.synth, "synth", "", "synthesize a note (A4) or frequency (440)")
	serveCmd.Flags().StringVar(&serveSource.device, "device", "", "capture device name substring")
	serveCmd.Flags().BoolVar(&serveSource.loop, "loop", false, "loop WAV playback")
	serveCmd.Flags().StringVar(&serveListen, "listen", ":8080", "HTTP listen address")
	serveCmd.Flags().StringVar(&servePath, "path", "/ws", "websocket path")
	serveCmd.Flags().StringVar(&serveStatsd, "statsd", "", "DogStatsD address (empty disables metrics)")
}

func runServe(cmd *cobra.Command, args []string) error {
	src, err := serveSource.build()
	if err != nil {
		return err
	}
	e, closeMetrics, err := newEngine(src)
	if err != nil {
		return err
	}
	defer closeMetrics()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := e.Start(ctx); err != nil {
		return err
	}
	defer e.Stop()

	srv := server.New(cfg.ServerSettings(), e, logging.GetGlobalLogger())
	return srv.ListenAndServe(ctx)
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tonal/logging"
	"github.com/RyanBlaney/sonido-tonal/source"
)

var (
	listenSource   sourceFlags
	listenDuration time.Duration
	listenEvery    int
	listenInterval time.Duration
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Analyse a source and print snapshots",
	Long: `Runs the analysis engine over a WAV file, a capture device or the
built-in synthesizer and prints one snapshot per tick.

Examples:
  sonido listen --wav take.wav
  sonido listen --capture --device "USB" --every 10 -o yaml
  sonido listen --synth A4 --duration 2s`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringVar(&listenSource.wav, "wav", "", "WAV file to play back")
	listenCmd.Flags().BoolVar(&listenSource.capture, "capture", false, "capture from an input device")
	listenCmd.Flags().StringVar(&listenSource.synth, "synth", "", "synthesize a note (A4) or frequency (440)")
	listenCmd.Flags().StringVar(&listenSource.device, "device", "", "capture device name substring")
	listenCmd.Flags().BoolVar(&listenSource.loop, "loop", false, "loop WAV playback")
	listenCmd.Flags().DurationVar(&listenDuration, "duration", 0, "stop after this long (0 runs until interrupted or the file ends)")
	listenCmd.Flags().IntVar(&listenEvery, "every", 1, "print every Nth snapshot")
	listenCmd.Flags().DurationVar(&listenInterval, "interval", 50*time.Millisecond, "analysis tick interval")
}

func runListen(cmd *cobra.Command, args []string) error {
	logger := logging.WithFields(logging.Fields{"component": "listen"})

	src, err := listenSource.build()
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
	if listenDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, listenDuration)
		defer cancel()
	}

	sub := e.Subscribe()
	defer e.Unsubscribe(sub)
	<-sub.C

	if err := e.Start(ctx); err != nil {
		return err
	}
	defer e.Stop()

	file, _ := src.(*source.File)
	out := snapshotWriter{w: cmd.OutOrStdout(), format: cfg.OutputFormat}
	every := max(listenEvery, 1)

	count := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info("listening finished", logging.Fields{"snapshots": count})
			return nil
		case snap := <-sub.C:
			if !snap.IsListening {
				return nil
			}
			count++
			if count%every == 0 {
				if err := out.write(snap); err != nil {
					return err
				}
			}
			if file != nil && file.Done() {
				logger.Info("end of file", logging.Fields{"snapshots": count})
				return nil
			}
		}
	}
}

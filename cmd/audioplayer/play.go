package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/audioplayer/player"
)

const statusPoll = 250 * time.Millisecond

var errPlaybackFailed = errors.New("playback failed")

var playCmd = &cobra.Command{
	Use:   "play [url]",
	Short: "Play a stream until it ends or is interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := cmd.Flags().Set("url", args[0]); err != nil {
				return err
			}
		}

		p, err := newPlayer(cmd, nil)
		if err != nil {
			return err
		}
		defer p.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := p.Play(ctx); err != nil {
			return err
		}

		err = wait(ctx, p)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(p.Status()); encErr != nil {
			return encErr
		}
		return err
	},
}

// wait blocks until the item ends, fails, or ctx is cancelled.
func wait(ctx context.Context, p *player.Player) error {
	ticker := time.NewTicker(statusPoll)
	defer ticker.Stop()

	finished := p.Finished()
	for {
		select {
		case <-ctx.Done():
			p.Stop()
			return nil
		case <-finished:
			return nil
		case <-ticker.C:
			if p.Status().State == player.StateFailed {
				return errPlaybackFailed
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(playCmd)
}

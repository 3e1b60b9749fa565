package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/makeasinger/studio/internal/generation"
	"github.com/makeasinger/studio/internal/model"
)

// eventChan forwards manager events to the command loop
type eventChan chan generation.Event

func (c eventChan) Publish(e generation.Event) {
	select {
	case c <- e:
	default:
	}
}

func newGenerateCmd(load loader) *cobra.Command {
	var details model.SongDetails
	var language, vocals, lyricsFile string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one song and print its outputs",
		Example: "  studio generate --title Summer --style \"indie pop\" --lyrics-file song.txt\n" +
			"  studio generate --vocals instrumental --style \"lofi beats\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			details.Language = model.Language(language)
			details.Vocals = model.Vocals(vocals)
			if lyricsFile != "" {
				b, err := os.ReadFile(lyricsFile)
				if err != nil {
					return fmt.Errorf("failed to read lyrics: %w", err)
				}
				details.Lyrics = strings.TrimSpace(string(b))
			}
			if details.Lyrics == "" && details.Instrumental() {
				details.Lyrics = "[Instrumental]"
			}
			if err := validator.New().Struct(&details); err != nil {
				return fmt.Errorf("invalid song details: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := newProviders(cfg, log)
			events := make(eventChan, 64)
			manager := generation.New(p.music, generation.Config{
				MaxConcurrent:   1,
				PollInterval:    cfg.Generation.PollInterval,
				MaxPollDuration: cfg.Generation.MaxPollDuration,
				PollRetries:     cfg.Generation.PollRetries,
				RetryBackoff:    cfg.Generation.RetryBackoff,
				Estimator:       generation.NewEstimator(cfg.Generation.ExpectedDuration),
				Publisher:       events,
				Logger:          &log,
			})
			defer manager.Close()

			jobID, err := manager.Submit(details)
			if err != nil {
				return err
			}
			log.Info().Str("job", jobID).Msg("generation submitted")

			job, err := waitForJob(ctx, manager, jobID, events)
			if err != nil {
				return err
			}
			if job.Status == generation.StatusFailed {
				return fmt.Errorf("generation failed: %s", job.Error)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(job.Result)
		},
	}

	f := cmd.Flags()
	f.StringVar(&details.Title, "title", "", "Song title")
	f.StringVar(&details.Style, "style", "", "Style prompt")
	f.StringVar(&details.Lyrics, "lyrics", "", "Lyrics text")
	f.StringVar(&lyricsFile, "lyrics-file", "", "Read lyrics from a file")
	f.StringVar(&details.Genre, "genre", "", "Genre")
	f.StringVar(&details.Mood, "mood", "", "Mood")
	f.StringVar(&details.Tempo, "tempo", "", "Tempo")
	f.StringVar(&language, "language", "", "Lyrics language (en, tr, fr, es, de, it, pt, ja, ko)")
	f.StringVar(&vocals, "vocals", "", "Vocals (male, female, duet, choir, instrumental)")
	return cmd
}

// waitForJob blocks until jobID reaches a terminal state. Cancelling ctx
// cancels the job. Events may be dropped, so the job is also checked once a
// second.
func waitForJob(ctx context.Context, m *generation.Manager, jobID string, events <-chan generation.Event) (generation.Job, error) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Cancel(jobID)
			return generation.Job{}, ctx.Err()
		case <-ticker.C:
			job, ok := m.Get(jobID)
			if !ok {
				return generation.Job{}, fmt.Errorf("job %s disappeared", jobID)
			}
			if job.Status.IsTerminal() {
				fmt.Fprintln(os.Stderr)
				return job, nil
			}
		case e := <-events:
			if e.Job.ID != jobID {
				continue
			}
			switch e.Type {
			case generation.EventProgress:
				fmt.Fprintf(os.Stderr, "\r%3.0f%% %-40s", e.Job.Progress, e.Job.ProgressText)
			case generation.EventComplete, generation.EventFailed:
				fmt.Fprintln(os.Stderr)
				return e.Job, nil
			}
		}
	}
}

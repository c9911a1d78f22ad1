/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/twproj/internal/project"
	"github.com/fulmenhq/twproj/internal/reactor"
	"github.com/fulmenhq/twproj/internal/watcher"
	"github.com/fulmenhq/twproj/pkg/ignore"
	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/stylesheet"
	"github.com/fulmenhq/twproj/pkg/toolchain"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the workspace's projects in step with file changes",
		Long: `Discover and load every project, then watch the workspace. Each debounced
batch of changes is classified: a project is rebuilt, reloaded or has its
selectors recomputed, and structural changes rediscover the whole workspace.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
	cmd.Flags().Duration("debounce", 0, "Quiet period before a batch is handled (default from settings)")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	sup := newSupervisor(ws)
	if err := sup.Start(ctx); err != nil {
		return err
	}
	defer sup.Stop()

	debounce := ws.settings.Watch.Debounce
	if d, _ := cmd.Flags().GetDuration("debounce"); d > 0 {
		debounce = d
	}
	opts := watcher.Options{Debounce: debounce, Exclude: ws.settings.Files.Exclude}
	if ws.settings.Files.Gitignore {
		if m, err := ignore.NewMatcher(ws.base); err == nil {
			opts.Ignore = m
		}
	}
	w, err := watcher.New(ws.base, opts)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	logger.Info("watching workspace", logger.String("workspace", ws.base), logger.Duration("debounce", debounce))
	err = w.Run(ctx, func(ctx context.Context, events []reactor.Event) error {
		res, err := sup.Apply(ctx, events)
		if err != nil {
			return err
		}
		if !res.Restart && len(res.Decisions) == 0 {
			logger.Debug("changes do not affect any project", logger.Int("events", len(events)))
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newSupervisor wires the workspace's locator, reactor and toolchain into a
// project supervisor.
func newSupervisor(ws *workspace) *project.Supervisor {
	loader := toolchain.NewModuleLoader(ws.res)
	r := reactor.New(reactor.Options{
		Base:    ws.base,
		Exclude: ws.settings.Files.Exclude,
		Loader:  loader,
		Reader:  stylesheet.NewFileReader(ws.res.Cache().FS()),
	})
	return project.NewSupervisor(project.SupervisorOptions{
		Discoverer:    ws.loc,
		Classifier:    r,
		Builder:       project.ToolchainBuilder{Loader: loader, Files: ws.res.Cache()},
		BeforeRestart: ws.res.Refresh,
		OnReport: func(rep project.Report) {
			fields := []logger.Field{
				logger.String("project", rep.Project),
				logger.String("outcome", rep.Outcome.String()),
				logger.String("state", rep.State.String()),
				logger.Duration("took", rep.Duration),
			}
			if rep.Err != nil {
				logger.Warn("project update failed", append(fields, logger.Err(rep.Err))...)
				return
			}
			logger.Info("project updated", fields...)
		},
	})
}

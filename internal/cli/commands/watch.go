package commands

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/gridsight-labs/gridsight/internal/project"
)

// debounceWindow coalesces the write bursts editors produce into one
// reload.
const debounceWindow = 250 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-validate the dashboard on every change",
		Long: `Watch the dashboard document and its dataset; whenever either
changes, reload and re-validate, printing the outcome. Useful while
editing metric definitions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd)
		},
	}
	return cmd
}

func runWatch(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(cmdCtx.Cfg.Dashboard); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cmdCtx.Cfg.Dashboard, err)
	}
	if dataset := cmdCtx.Engine.Document().Dataset; dataset != "" {
		if err := watcher.Add(dataset); err != nil {
			cmdCtx.Logger.Warn("failed to watch dataset", "path", dataset, "error", err)
		}
	}

	report := func() {
		result, err := cmdCtx.Engine.Validate()
		if err != nil {
			cmdCtx.Renderer.Errorln("validation failed:", err)
			return
		}
		ts := time.Now().Format("15:04:05")
		if result.Valid {
			cmdCtx.Renderer.Println(ts, cmdCtx.Renderer.Styles().Success.Render("valid"))
			return
		}
		cmdCtx.Renderer.Println(ts, cmdCtx.Renderer.Styles().Error.Render(
			fmt.Sprintf("%d error(s)", len(result.Errors))))
		for _, e := range result.Errors {
			cmdCtx.Renderer.Println("  ", e.String())
		}
	}

	cmdCtx.Renderer.Printf("watching %s\n", cmdCtx.Cfg.Dashboard)
	report()

	var timer *time.Timer
	reloads := make(chan struct{}, 1)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Some editors replace the file, dropping the watch; re-add.
			_ = watcher.Add(event.Name)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case reloads <- struct{}{}:
				default:
				}
			})

		case <-reloads:
			doc, err := project.Load(cmdCtx.Cfg.Dashboard)
			if err != nil {
				cmdCtx.Renderer.Errorln("reload failed:", err)
				continue
			}
			if err := cmdCtx.Engine.Reload(doc, cmdCtx.Cfg.Dataset); err != nil {
				cmdCtx.Renderer.Errorln("reload failed:", err)
				continue
			}
			report()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Warn("watch error", "error", err)

		case <-cmd.Context().Done():
			return nil
		}
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sigma/internal/config"
	"sigma/internal/db"
	"sigma/internal/domain"
	"sigma/internal/engine"
	"sigma/internal/migrate"
	"sigma/internal/seed"
	"sigma/internal/server"
	"sigma/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "sigma",
	Short: "Sigma demo state engine CLI",
	Long: `Sigma drives the demo data set behind the city infrastructure dashboard:
seeded events, the agent action log, generated tasks and metric series, plus
the demo controls (stale simulation, pause, critical-event injection).
State persists per workspace in .sigma/sigma.db and survives restarts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SIGMA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(agentsCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(actionsCmd())
	rootCmd.AddCommand(tasksCmd())
	rootCmd.AddCommand(seriesCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(serveCmd())
}

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List agents with derived state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				views := e.Agents()
				if viper.GetBool("json") {
					return printJSON(views)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "State", "Paused", "Last activity"})
				for _, v := range views {
					tw.AppendRow(table.Row{v.ID, v.Title, v.State, v.Paused, formatMillis(v.LastEventAt)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func eventsCmd() *cobra.Command {
	evt := &cobra.Command{Use: "events", Short: "Work with demo events"}
	evt.AddCommand(eventsListCmd())
	evt.AddCommand(eventsShowCmd())
	evt.AddCommand(eventsCloseCmd())
	evt.AddCommand(eventsAddCmd())
	return evt
}

func eventsListCmd() *cobra.Command {
	var agent string
	var statuses []string
	var attention bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				var filter *store.EventFilter
				if agent != "" || len(statuses) > 0 || cmd.Flags().Changed("attention") {
					filter = &store.EventFilter{
						AgentID: domain.AgentID(agent),
						Status:  statuses,
					}
					if cmd.Flags().Changed("attention") {
						filter.RequiresAttention = &attention
					}
				}
				events := e.Events.List(filter)
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Domain", "Level", "Status", "Title", "Updated"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.Msg.Domain, evt.Msg.Level, evt.Msg.Status, evt.Msg.Title, formatMillis(evt.Msg.UpdatedAt)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "filter by classified agent (heat|air|noise)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status membership")
	cmd.Flags().BoolVar(&attention, "attention", false, "filter by requires-attention flag")
	return cmd
}

func eventsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				evt, ok := e.Events.Get(id)
				if !ok {
					return fmt.Errorf("event %d: %w", id, store.ErrNotFound)
				}
				return printJSON(evt)
			})
		},
	}
	return cmd
}

func eventsCloseCmd() *cobra.Command {
	var status, comment, reason, closedBy string
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close or resolve an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				evt, err := e.Events.Close(ctx, id, store.CloseRequest{
					Status:   status,
					Comment:  comment,
					Reason:   reason,
					ClosedBy: closedBy,
				})
				if err != nil {
					return err
				}
				return printJSON(evt)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", domain.StatusResolved, "resolved or closed")
	cmd.Flags().StringVar(&comment, "comment", "", "closure comment")
	cmd.Flags().StringVar(&reason, "reason", "", "closure reason")
	cmd.Flags().StringVar(&closedBy, "by", "operator", "who closes the event")
	return cmd
}

func eventsAddCmd() *cobra.Command {
	var agent, title, description, status string
	var level int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an override event",
		RunE: func(cmd *cobra.Command, args []string) error {
			if agent == "" || title == "" {
				return fmt.Errorf("--agent and --title are required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				evt, err := e.Events.AddFromOverride(ctx, seed.EventOverride{
					ID:          e.Control.NextEventID(),
					Domain:      domain.AgentID(agent),
					Title:       title,
					Description: description,
					Level:       level,
					Status:      status,
				}, e.Control.Stale())
				if err != nil {
					return err
				}
				return printJSON(evt)
			})
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "owning domain (heat|air|noise)")
	cmd.Flags().StringVar(&title, "title", "", "event title")
	cmd.Flags().StringVar(&description, "description", "", "event description")
	cmd.Flags().IntVar(&level, "level", domain.LevelInfo, "severity level 1..3")
	cmd.Flags().StringVar(&status, "status", domain.StatusNew, "initial status")
	return cmd
}

func actionsCmd() *cobra.Command {
	act := &cobra.Command{Use: "actions", Short: "Agent action log"}
	act.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List action log entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				entries := e.Actions.List()
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Agent", "Action", "Result", "Summary"})
				for _, entry := range entries {
					tw.AppendRow(table.Row{entry.ID, entry.AgentID, entry.Action, entry.Result, entry.Summary})
				}
				tw.Render()
				return nil
			})
		},
	})
	return act
}

func tasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List generated tasks and decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				tasks := e.Tasks()
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Agent", "Title", "Status", "Priority", "Due"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.AgentID, t.Title, t.Status, t.Priority, formatMillis(t.DueAt)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func seriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "series <agent>",
		Short: "Print a domain's hourly metric series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				points, ok := e.TimeseriesFor(domain.AgentID(args[0]))
				if !ok {
					return fmt.Errorf("unknown agent %q", args[0])
				}
				return printJSON(points)
			})
		},
	}
}

func demoCmd() *cobra.Command {
	demo := &cobra.Command{Use: "demo", Short: "Demo control surface"}
	demo.AddCommand(demoStaleCmd())
	demo.AddCommand(demoPauseCmd())
	demo.AddCommand(demoInjectCmd())
	return demo
}

func demoStaleCmd() *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "stale <agent>",
		Short: "Simulate stale data for a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				e.Control.SetStale(domain.AgentID(args[0]), !off)
				// Stale flags shape the next reseed; reseed now so the effect shows.
				if err := e.Events.Reset(ctx); err != nil {
					return err
				}
				return printJSON(e.Agents())
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "clear the stale flag")
	return cmd
}

func demoPauseCmd() *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "pause <agent>",
		Short: "Pause or resume a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				e.Control.SetPaused(domain.AgentID(args[0]), !off)
				return printJSON(e.Agents())
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "resume the domain")
	return cmd
}

func demoInjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inject",
		Short: "Inject a critical heating event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				evt, err := e.InjectCritical(ctx)
				if err != nil {
					return err
				}
				return printJSON(evt)
			})
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reseed demo state from the generator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if err := e.Reset(ctx); err != nil {
					return err
				}
				fmt.Println("demo state reseeded")
				return nil
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if basePath == "" {
					basePath = e.Config.Server.BasePath
				}
				handler, err := server.New(server.Config{
					Engine:   e,
					BasePath: basePath,
					Auth: server.AuthConfig{
						JWTSecret:      firstNonEmpty(os.Getenv("SIGMA_JWT_SECRET"), e.Config.Server.JWTSecret),
						AllowAnonymous: e.Config.Server.AllowAnonymous,
					},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Sigma demo API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config)")
	return cmd
}

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = config.Default("sigma-demo")
	}
	e, err := engine.New(ctx, conn, cfg, nil)
	if err != nil {
		return err
	}
	return fn(ctx, e)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).Local().Format(time.RFC3339)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

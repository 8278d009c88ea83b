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

	"taskline/internal/app"
	"taskline/internal/config"
	"taskline/internal/db"
	"taskline/internal/engine"
	"taskline/internal/journal"
	"taskline/internal/migrate"
	"taskline/internal/server"
	tasklinesdk "taskline/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "tl",
	Short: "Taskline CLI",
	Long: `Taskline tracks tasks through a TODO -> IN_PROGRESS -> DONE workflow and
records elapsed working time. Participants have roles:
- product_owner: creates tasks, manages participants and assignments.
- member: updates title, estimate, and status on tasks assigned to them.
- visualizer: read-only.
Most commands talk to a running server ('tl serve'); identity is the
participant name sent with each request.`,
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
	viper.SetEnvPrefix("TASKLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("server", "http://127.0.0.1:8080/v1", "server base URL including base path")
	rootCmd.PersistentFlags().StringP("identity", "i", "", "participant name for mutations")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("identity", rootCmd.PersistentFlags().Lookup("identity"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(participantCmd())
	rootCmd.AddCommand(logCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath, workspace string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cfg.Server.Addr == "" {
				cfg.Server.Addr = "127.0.0.1:8080"
			}
			if basePath != "" {
				cfg.Server.BasePath = basePath
			}
			st, err := app.Bootstrap(cfg)
			if err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			e := engine.New(st, &journal.Writer{DB: conn})
			handler, err := server.New(server.Config{
				Engine:      e,
				BasePath:    cfg.Server.BasePath,
				Auth:        server.AuthConfig{JWTSecret: os.Getenv("TASKLINE_JWT_SECRET")},
				CORSOrigins: cfg.Server.CORSOrigins,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Taskline API on http://%s%s (OpenAPI at %s/openapi.json)\n",
				cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides config)")
	cmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage config"}
	var workspace string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default taskline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory")
	cfg.AddCommand(initCmd)
	return cfg
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks flow TODO -> IN_PROGRESS -> DONE in any direction. Entering DONE records completed_at and actual_sec; going back to TODO clears them while started_at stays.",
	}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskGetCmd())
	task.AddCommand(taskUpdateCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var title, status string
	var estimate int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task (product_owner only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := client().CreateTask(cmd.Context(), title, status, estimate)
			if err != nil {
				return err
			}
			return printJSONOrIndented(t)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&status, "status", "", "initial status (default TODO)")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "estimate in minutes")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := client().Tasks(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(tasks)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Title", "Status", "Estimate (min)", "Actual (sec)", "Assignees"})
			for _, t := range tasks {
				actual := ""
				if t.ActualSec != nil {
					actual = strconv.FormatInt(*t.ActualSec, 10)
				}
				tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.EstimateMin, actual, strings.Join(t.Assignees, ", ")})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func taskGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := client().Task(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSONOrIndented(t)
		},
	}
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var title, status, addAssignee, removeAssignee string
	var estimate int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch tasklinesdk.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("estimate") {
				patch.EstimateMin = &estimate
			}
			if cmd.Flags().Changed("status") {
				patch.Status = &status
			}
			if cmd.Flags().Changed("add-assignee") {
				patch.AddAssignee = &addAssignee
			}
			if cmd.Flags().Changed("remove-assignee") {
				patch.RemoveAssignee = &removeAssignee
			}
			t, err := client().UpdateTask(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			return printJSONOrIndented(t)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "new estimate in minutes")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&addAssignee, "add-assignee", "", "participant name to assign (product_owner only)")
	cmd.Flags().StringVar(&removeAssignee, "remove-assignee", "", "participant name to unassign (product_owner only)")
	return cmd
}

func participantCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "participant",
		Short: "Manage participants (product_owner only for mutations)",
	}
	p.AddCommand(participantAddCmd())
	p.AddCommand(participantListCmd())
	p.AddCommand(participantUpdateCmd())
	p.AddCommand(participantRemoveCmd())
	return p
}

func participantAddCmd() *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a member or visualizer",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := client().CreateParticipant(cmd.Context(), name, role)
			if err != nil {
				return err
			}
			return printJSONOrIndented(p)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "participant name")
	cmd.Flags().StringVar(&role, "role", "member", "role (member or visualizer)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func participantListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List participants",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := client().Participants(cmd.Context())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Name", "Role"})
			for _, p := range items {
				tw.AppendRow(table.Row{p.ID, p.Name, p.Role})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func participantUpdateCmd() *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or re-role a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch tasklinesdk.ParticipantPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("role") {
				patch.Role = &role
			}
			p, err := client().UpdateParticipant(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			return printJSONOrIndented(p)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&role, "role", "", "new role (member or visualizer)")
	return cmd
}

func participantRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := client().DeleteParticipant(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Println("removed", id)
			return nil
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	logc := &cobra.Command{Use: "log", Short: "Audit journal"}
	var n int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show recent journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := client().Events(cmd.Context(), n)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(entries)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"TS", "Type", "Entity", "Actor"})
			for _, e := range entries {
				tw.AppendRow(table.Row{e.TS, e.Type, e.EntityKind + "/" + e.EntityID, e.Actor})
			}
			tw.Render()
			return nil
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of entries")
	logc.AddCommand(tail)
	return logc
}

// --- helpers ---

func client() *tasklinesdk.Client {
	return tasklinesdk.New(viper.GetString("server"), viper.GetString("identity"))
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func printJSONOrIndented(v any) error {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

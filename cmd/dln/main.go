package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"decisionline/internal/config"
	"decisionline/internal/db"
	"decisionline/internal/domain"
	"decisionline/internal/engine"
	"decisionline/internal/migrate"
	"decisionline/internal/patterns"
	"decisionline/internal/server"
	"decisionline/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "dln",
	Short: "Decisionline CLI",
	Long: `Decisionline keeps a journal of significant decisions and scores how well
each one was made, independent of how it turned out.
Core concepts:
- Workspace: your .decisionline directory holding the journal database; an
  optional decisionline.yml tunes the owner, review horizon and classifier.
- Decision: a titled problem statement typed by one of eight templates
  (strategic, hire, vendor, architecture, resource, process, incident,
  investment). Leave --type off and the classifier picks one from keywords.
- Lifecycle: draft -> options_captured -> decided -> outcome_recorded,
  strictly forward. Recording an outcome is final; it is never overwritten.
- Options: the alternatives you considered, with pros, cons, risks and
  estimates. Exactly one ends up chosen.
- Quality score: six dimensions (frame, alternatives, information, values,
  reasoning, commitment), 10 points each, recomputed on every change. The
  score measures decision process, not outcome luck.
- Patterns: success rates per type, weakest scoring dimension and recurring
  lessons across the whole journal.
- Event log: diary of changes, view with 'dln log tail'.`,
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
	viper.SetEnvPrefix("DECISIONLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "", "actor identifier (defaults to journal owner)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(decisionCmd())
	rootCmd.AddCommand(optionCmd())
	rootCmd.AddCommand(patternsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
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
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				fmt.Printf("Workspace ready, config already at %s\n", path)
				return nil
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(owner)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Workspace ready, wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "local-user", "journal owner")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config is the rulebook (decisionline.yml): journal owner, default review horizon, and extra classifier keywords per decision type.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrIndent(e.Config)
			})
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func decisionCmd() *cobra.Command {
	dec := &cobra.Command{
		Use:   "decision",
		Short: "Manage decisions",
		Long:  "Decisions capture the important choices, the options weighed, who decided, and how it turned out.",
	}
	dec.AddCommand(decisionCreateCmd())
	dec.AddCommand(decisionListCmd())
	dec.AddCommand(decisionShowCmd())
	dec.AddCommand(decisionChooseCmd())
	dec.AddCommand(decisionReviewCmd())
	dec.AddCommand(decisionOutcomeCmd())
	dec.AddCommand(decisionDeleteCmd())
	return dec
}

func decisionCreateCmd() *cobra.Command {
	var opts engine.CreateOptions
	var stakeholders []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Stakeholders = stakeholders
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ActorID = actorID(e)
				d, err := e.Create(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrIndent(d)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Type, "type", "", "decision type (classified from title and problem when omitted)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.ProblemStatement, "problem", "", "problem statement")
	cmd.Flags().StringArrayVar(&stakeholders, "stakeholder", []string{}, "stakeholder (repeatable)")
	cmd.Flags().StringVar(&opts.ValuesStatement, "values", "", "values or criteria statement")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("problem")
	return cmd
}

func decisionListCmd() *cobra.Command {
	var f store.DecisionFilters
	var cursor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if parts := strings.SplitN(cursor, "|", 2); len(parts) == 2 {
					f.CursorCreatedAt, f.CursorID = parts[0], parts[1]
				}
				items, err := e.Store.ListDecisions(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Type", "Status", "Review"})
				for _, d := range items {
					review := ""
					if d.ReviewDate != nil {
						review = *d.ReviewDate
					}
					tw.AppendRow(table.Row{d.ID, d.Title, d.Type, d.Status, review})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Type, "type", "", "type filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "max rows")
	cmd.Flags().StringVar(&cursor, "cursor", "", "pagination cursor (created_at|id)")
	return cmd
}

func decisionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show decision summary with quality score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Summary(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				d := s.Decision
				fmt.Printf("%s (%s, %s)\n", d.Title, d.Type, d.Status)
				fmt.Printf("Problem: %s\n", d.ProblemStatement)
				if len(d.Stakeholders) > 0 {
					fmt.Printf("Stakeholders: %s\n", strings.Join(d.Stakeholders, ", "))
				}
				if d.ValuesStatement != "" {
					fmt.Printf("Values: %s\n", d.ValuesStatement)
				}
				if d.ReviewDate != nil {
					fmt.Printf("Review date: %s\n", *d.ReviewDate)
				}
				if len(s.Options) > 0 {
					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"Option", "Name", "Pros", "Cons", "Risks", "Chosen"})
					for _, o := range s.Options {
						chosen := ""
						if o.Chosen {
							chosen = "*"
						}
						tw.AppendRow(table.Row{o.ID, o.Name, len(o.Pros), len(o.Cons), len(o.Risks), chosen})
					}
					tw.Render()
				}
				if d.Reasoning != "" {
					fmt.Printf("Reasoning: %s\n", d.Reasoning)
				}
				if s.Outcome != nil {
					fmt.Printf("Outcome (%s): %s\n", s.Outcome.SuccessLevel, s.Outcome.ActualOutcome)
					if s.Outcome.LessonsLearned != "" {
						fmt.Printf("Lessons: %s\n", s.Outcome.LessonsLearned)
					}
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Frame", "Alternatives", "Information", "Values", "Reasoning", "Commitment", "Total", "Grade"})
				q := s.Quality
				tw.AppendRow(table.Row{q.Frame, q.Alternatives, q.Information, q.Values, q.Reasoning, q.Commitment, q.Total, s.Grade})
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func decisionChooseCmd() *cobra.Command {
	var opts engine.ChooseOptions
	cmd := &cobra.Command{
		Use:   "choose <id>",
		Short: "Choose an option and mark the decision decided",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DecisionID = args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ActorID = actorID(e)
				d, err := e.Choose(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrIndent(d)
			})
		},
	}
	cmd.Flags().StringVar(&opts.OptionID, "option", "", "chosen option id")
	cmd.Flags().StringVar(&opts.Reasoning, "reasoning", "", "why this option")
	cmd.Flags().StringVar(&opts.DecidedBy, "decided-by", "", "who decided (defaults to actor)")
	cmd.Flags().StringVar(&opts.ReviewDate, "review-date", "", "review date YYYY-MM-DD")
	cmd.Flags().BoolVar(&opts.ScheduleDefaultReview, "schedule-review", false, "schedule review at the configured horizon")
	_ = cmd.MarkFlagRequired("option")
	return cmd
}

func decisionReviewCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "review <id>",
		Short: "Schedule or move the review date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.ScheduleReview(ctx, id, date, actorID(e))
				if err != nil {
					return err
				}
				return printJSONOrIndent(d)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "review date YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func decisionOutcomeCmd() *cobra.Command {
	var opts engine.OutcomeOptions
	var wouldRepeat bool
	cmd := &cobra.Command{
		Use:   "outcome <id>",
		Short: "Record the outcome (final, once)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DecisionID = args[0]
			if cmd.Flags().Changed("would-repeat") {
				opts.WouldRepeat = &wouldRepeat
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ActorID = actorID(e)
				d, err := e.RecordOutcome(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrIndent(d)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ActualOutcome, "outcome", "", "what actually happened")
	cmd.Flags().StringVar(&opts.SuccessLevel, "success", "", "success level (exceeded, met, partial, missed, failed)")
	cmd.Flags().StringVar(&opts.Lessons, "lessons", "", "lessons learned")
	cmd.Flags().BoolVar(&wouldRepeat, "would-repeat", false, "would you make the same call again")
	_ = cmd.MarkFlagRequired("outcome")
	_ = cmd.MarkFlagRequired("success")
	return cmd
}

func decisionDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a decision and everything attached to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Delete(ctx, id, actorID(e))
			})
		},
	}
	return cmd
}

func optionCmd() *cobra.Command {
	opt := &cobra.Command{
		Use:   "option",
		Short: "Manage decision options",
		Long:  "Options are the alternatives a decision weighs. Documented options (2+ pros, 2+ cons, a risk) and estimates raise the quality score.",
	}
	opt.AddCommand(optionAddCmd())
	opt.AddCommand(optionListCmd())
	return opt
}

func optionAddCmd() *cobra.Command {
	var in engine.OptionInput
	var pros, cons, risks []string
	var decisionID string
	cmd := &cobra.Command{
		Use:   "add <decision-id>",
		Short: "Add an option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decisionID = args[0]
			in.Pros = pros
			in.Cons = cons
			in.Risks = risks
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.AddOption(ctx, decisionID, in, actorID(e))
				if err != nil {
					return err
				}
				return printJSONOrIndent(o)
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "option name")
	cmd.Flags().StringArrayVar(&pros, "pro", []string{}, "pro (repeatable)")
	cmd.Flags().StringArrayVar(&cons, "con", []string{}, "con (repeatable)")
	cmd.Flags().StringArrayVar(&risks, "risk", []string{}, "risk (repeatable)")
	cmd.Flags().StringVar(&in.EstimateEffort, "effort", "", "effort estimate")
	cmd.Flags().StringVar(&in.EstimateCost, "cost", "", "cost estimate")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func optionListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <decision-id>",
		Short: "List options of a decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Store.ListOptions(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrIndent(items)
			})
		},
	}
	return cmd
}

func patternsCmd() *cobra.Command {
	var topLessons int
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Aggregate patterns across the journal",
		Long:  "Success rates per decision type, mean score per rubric dimension, grade distribution, and recurring lessons-learned fragments.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := patterns.Analyzer{Store: e.Store}.Report(ctx, topLessons)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				fmt.Printf("Decisions: %d (%d with outcomes)\n", report.Decisions, report.Completed)
				if len(report.Types) > 0 {
					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"Type", "Completed", "Succeeded", "Success rate"})
					for _, ts := range report.Types {
						rate := "no data"
						if ts.SuccessRate != nil {
							rate = fmt.Sprintf("%.0f%%", *ts.SuccessRate*100)
						}
						tw.AppendRow(table.Row{ts.Type, ts.Completed, ts.Succeeded, rate})
					}
					tw.Render()
				}
				if report.Dimensions.Scored > 0 {
					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"Dimension", "Mean"})
					for _, name := range domain.DimensionNames {
						tw.AppendRow(table.Row{name, fmt.Sprintf("%.1f", report.Dimensions.Means[name])})
					}
					tw.Render()
					fmt.Printf("Weakest: %s, strongest: %s\n", report.Dimensions.Weakest, report.Dimensions.Strongest)
				}
				for _, l := range report.Lessons {
					fmt.Printf("  %dx %q (e.g. %s)\n", l.Count, l.Fragment, strings.Join(l.Examples, ", "))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&topLessons, "top-lessons", 10, "number of recurring lesson fragments")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: creations, options, choices, reviews and outcomes.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, decisionID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				events, err := st.LatestEvents(ctx, n, evtType, decisionID)
				if err != nil {
					return err
				}
				return printJSONOrIndent(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&decisionID, "decision", "", "decision id filter")
	return cmd
}

func apikeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys for the HTTP server",
	}
	cmd.AddCommand(apikeyCreateCmd())
	cmd.AddCommand(apikeyListCmd())
	cmd.AddCommand(apikeyDeleteCmd())
	return cmd
}

func apikeyCreateCmd() *cobra.Command {
	var actor, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (secret printed once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				if actor == "" {
					actor = "local-user"
				}
				secret := uuid.New().String() + uuid.New().String()
				key := domain.APIKey{
					ID:        uuid.New().String(),
					ActorID:   actor,
					Name:      name,
					KeyHash:   store.HashAPIKey(secret),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := st.InsertAPIKey(ctx, key); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"id": key.ID, "actor_id": key.ActorID, "secret": secret})
				}
				fmt.Printf("API key %s for %s\nSecret (save it now): %s\n", key.ID, key.ActorID, secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor the key authenticates as")
	cmd.Flags().StringVar(&name, "name", "", "label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				items, err := st.ListAPIKeys(ctx, actor)
				if err != nil {
					return err
				}
				return printJSONOrIndent(items)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "filter by actor")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				return st.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
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
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("DECISIONLINE_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("DECISIONLINE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Decisionline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
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
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withStore(ctx context.Context, fn func(context.Context, store.Store) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, store.Store{DB: conn})
}

func actorID(e engine.Engine) string {
	if v := viper.GetString("actor-id"); v != "" {
		return v
	}
	if e.Config != nil && e.Config.Journal.Owner != "" {
		return e.Config.Journal.Owner
	}
	return "local-user"
}

func printJSONOrIndent(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/originality-backend/internal/app"
	"github.com/yungbote/originality-backend/internal/data/db"
	"github.com/yungbote/originality-backend/internal/data/repos"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/llm/router"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/platform/logger"
	"github.com/yungbote/originality-backend/internal/realtime"
	"github.com/yungbote/originality-backend/internal/scoring"
	"github.com/yungbote/originality-backend/internal/services"
)

// buildRouter resolves providers the same way the server does, with flag
// overrides applied on top of the environment.
func buildRouter(ctx context.Context, opts *rootOptions, log *logger.Logger) (*router.Router, error) {
	cfg, err := app.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if opts.providersPath != "" {
		cfg.LLMProvidersPath = opts.providersPath
	}
	if opts.provider != "" {
		cfg.LLMDefaultProvider = opts.provider
	}
	cfg.LLMMock = cfg.LLMMock || opts.mock
	llmCfg, err := cfg.LLMConfig()
	if err != nil {
		return nil, err
	}
	return router.New(ctx, llmCfg, log, router.Options{})
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		kind  string
		model string
		words int
	)
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Score a document for originality, cogency, intelligence or quality",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := opts.logger()
			defer log.Sync()

			if _, err := scoring.ParseKind(kind); err != nil {
				return err
			}
			models, err := buildRouter(ctx, opts, log)
			if err != nil {
				return err
			}
			text, err := readText(cmd, args[0], models.Transcriber())
			if err != nil {
				return err
			}

			gdb, err := db.Open(db.Config{Driver: db.DriverSQLite, DSN: db.MemoryDSN("scorectl-" + uuid.NewString()), Silent: true}, log)
			if err != nil {
				return err
			}
			defer db.Close(gdb)
			rp := repos.New(gdb, log)
			users, err := rp.User.Create(dbctx.New(ctx), []*types.User{{Email: "scorectl@localhost", Password: "-", DisplayName: "scorectl"}})
			if err != nil {
				return fmt.Errorf("create local user: %w", err)
			}
			jobs := services.NewJobService(gdb, log, rp.JobRun, services.NewJobNotifier(realtime.NopEmitter{}))
			analyses := services.NewAnalysisService(gdb, log, rp.Analysis, rp.Document, jobs, models, realtime.NopEmitter{}, nil, services.AnalysisConfig{})

			a, err := analyses.Analyze(ctx, users[0].ID, services.AnalyzeRequest{
				Source:     services.Source{Text: text, Title: strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))},
				Target:     services.Target{Provider: opts.provider, Model: model},
				Kind:       kind,
				ChunkWords: words,
			})
			if err != nil {
				return err
			}
			return printAssessment(cmd, opts, a)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(scoring.KindOriginality), "originality, cogency, intelligence or quality")
	cmd.Flags().StringVar(&model, "model", "", "model (defaults to the provider default)")
	cmd.Flags().IntVar(&words, "words", 0, "maximum words per chunk")
	return cmd
}

func printAssessment(cmd *cobra.Command, opts *rootOptions, a *types.Analysis) error {
	out := cmd.OutOrStdout()
	if opts.jsonOut {
		return writeJSON(out, a)
	}
	var res scoring.Assessment
	if err := json.Unmarshal(a.Result, &res); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	fmt.Fprintf(out, "%s via %s/%s: %s (%d words, %d chunks)\n\n", a.Kind, a.Provider, a.Model, formatScore(res.Score), a.WordCount, a.ChunkCount)

	table := newTable(out, "Dimension", "Score", "Comment")
	for _, d := range res.Ranked() {
		_ = table.Append([]string{d.Name, formatScore(d.Score), preview(d.Comment, 70)})
	}
	if err := table.Render(); err != nil {
		return err
	}
	if res.Summary != "" {
		fmt.Fprintf(out, "\n%s\n", res.Summary)
	}
	return nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64) + "/100"
}

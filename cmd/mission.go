package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/missionkit/internal/api"
	"github.com/abhisek/missionkit/internal/coach"
	"github.com/abhisek/missionkit/internal/content"
	"github.com/abhisek/missionkit/internal/dataset"
	"github.com/abhisek/missionkit/internal/gamesession"
	"github.com/abhisek/missionkit/internal/llm"
	"github.com/abhisek/missionkit/internal/mission"
	"github.com/abhisek/missionkit/internal/store"
)

// addMissionFlags registers the flags shared by commands that play a mission.
func addMissionFlags(cmd *cobra.Command) {
	cmd.Flags().String("game", string(mission.GameWordCatcher), "Game type: "+gameTypeList())
	cmd.Flags().String("bank", "", "Content bank JSON file (default: fetch --topic from --api)")
	cmd.Flags().String("mission", "", "Mission config JSON file")
	cmd.Flags().String("difficulty", "", "Difficulty preset, overrides the mission config")
	cmd.Flags().String("topic", "local", "Topic ID")
	cmd.Flags().String("student", "preview", "Student ID")
	cmd.Flags().String("api", "", "Persistence service base URL (default: local database)")
	cmd.Flags().Uint64("seed", 0, "Dataset sampling seed (0 = random)")
	cmd.Flags().Bool("coach", false, "Ask the configured LLM for a coach note")
}

func gameTypeList() string {
	names := make([]string, 0, len(mission.AllGameTypes()))
	for _, gt := range mission.AllGameTypes() {
		names = append(names, string(gt))
	}
	return strings.Join(names, ", ")
}

// missionRun is everything needed to start one session.
type missionRun struct {
	Config   mission.ResolvedConfig
	Dataset  *dataset.GameDataset
	Identity gamesession.Identity
	Manager  *gamesession.Manager

	closers []func() error
}

func (r *missionRun) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i]()
	}
}

// prepareRun resolves the config, validates the bank, builds the dataset and
// wires a manager to the local database or the --api service. A bank that
// cannot support a full session is rejected before anything starts.
func prepareRun(cmd *cobra.Command, logger *slog.Logger) (*missionRun, error) {
	ctx := cmd.Context()
	gameFlag, _ := cmd.Flags().GetString("game")
	gt := mission.GameType(gameFlag)
	if _, ok := mission.LookupVariant(gt); !ok {
		return nil, fmt.Errorf("unknown game %q (want one of %s)", gameFlag, gameTypeList())
	}

	cfg, err := loadMissionConfig(cmd)
	if err != nil {
		return nil, err
	}
	rc := mission.NewResolver(logger).Resolve(cfg, gt)

	run := &missionRun{Config: rc}
	apiURL, _ := cmd.Flags().GetString("api")
	topic, _ := cmd.Flags().GetString("topic")
	student, _ := cmd.Flags().GetString("student")
	run.Identity = gamesession.Identity{StudentID: student, TopicID: topic, GameTypeID: string(gt)}

	var (
		sessions gamesession.SessionStore
		events   store.EventRepo
		client   *api.Client
	)
	if apiURL != "" {
		apiCfg := api.ConfigFromEnv()
		apiCfg.BaseURL = apiURL
		client = api.NewClient(apiCfg, nil)
		sessions = client
	}
	st, err := openStore(cmd)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	run.closers = append(run.closers, st.Close)
	events = st.EventRepo()
	if sessions == nil {
		sessions = gamesession.NewLocalStore(st.SessionRepo())
	}

	bank, err := loadBank(ctx, cmd, client)
	if err != nil {
		run.Close()
		return nil, err
	}

	if err := dataset.Validate(bank, rc); err != nil {
		run.Close()
		var insufficient *dataset.ContentInsufficientError
		if errors.As(err, &insufficient) {
			return nil, fmt.Errorf("cannot start %s: %s: %w", gt, strings.Join(insufficient.Messages(), " "), err)
		}
		return nil, err
	}

	seed, _ := cmd.Flags().GetUint64("seed")
	bopts := []dataset.Option{dataset.WithLogger(logger)}
	if seed != 0 {
		bopts = append(bopts, dataset.WithSeed(seed))
	}
	run.Dataset, err = dataset.NewBuilder(bopts...).Build(bank, rc)
	if err != nil {
		run.Close()
		return nil, fmt.Errorf("build dataset: %w", err)
	}

	mopts := []gamesession.Option{gamesession.WithLogger(logger)}
	if useCoach, _ := cmd.Flags().GetBool("coach"); useCoach {
		c, err := newCoach(ctx, events, logger)
		if err != nil {
			run.Close()
			return nil, err
		}
		mopts = append(mopts, gamesession.WithCoach(c))
	}
	run.Manager = gamesession.NewManager(sessions, mopts...)
	return run, nil
}

func loadMissionConfig(cmd *cobra.Command) (mission.MissionConfig, error) {
	var cfg mission.MissionConfig
	if path, _ := cmd.Flags().GetString("mission"); path != "" {
		var err error
		if cfg, err = mission.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if d, _ := cmd.Flags().GetString("difficulty"); d != "" {
		if _, ok := mission.ParseDifficulty(d); !ok {
			return cfg, fmt.Errorf("unknown difficulty %q", d)
		}
		cfg.Difficulty = d
	}
	return cfg, nil
}

// loadBank reads --bank, or fetches the topic from the service.
func loadBank(ctx context.Context, cmd *cobra.Command, client *api.Client) ([]content.Item, error) {
	if path, _ := cmd.Flags().GetString("bank"); path != "" {
		return content.LoadBank(path)
	}
	if client == nil {
		return nil, fmt.Errorf("either --bank or --api is required")
	}
	topic, _ := cmd.Flags().GetString("topic")
	items, err := client.ListByTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("fetch content for topic %q: %w", topic, err)
	}
	return items, nil
}

func newCoach(ctx context.Context, events store.EventRepo, logger *slog.Logger) (*coach.Coach, error) {
	cfg := llm.ConfigFromEnv()
	if !cfg.Enabled() {
		return nil, fmt.Errorf("--coach needs an LLM provider; set MISSIONKIT_LLM_PROVIDER and its API key")
	}
	provider, err := llm.NewProvider(ctx, cfg, events, logger)
	if err != nil {
		return nil, fmt.Errorf("LLM provider: %w", err)
	}
	return coach.New(provider, coach.DefaultConfig(), logger), nil
}

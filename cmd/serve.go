package cmd

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/missionkit/internal/content"
	"github.com/abhisek/missionkit/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session and content HTTP service",
	Long: `Serve the game-session and topic-content API that game clients submit
results to. Redis content caching and AMQP session events are enabled by
MISSIONKIT_REDIS_ADDR and MISSIONKIT_AMQP_URL.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides MISSIONKIT_HTTP_ADDR)")
	serveCmd.Flags().StringSlice("import", nil, "Load a content bank before serving, as topic=file (repeatable)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cmd)
	cfg := server.ConfigFromEnv()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}

	st, err := openStore(cmd)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	imports, _ := cmd.Flags().GetStringSlice("import")
	for _, arg := range imports {
		topic, path, ok := strings.Cut(arg, "=")
		if !ok || topic == "" || path == "" {
			return fmt.Errorf("invalid --import %q, want topic=file", arg)
		}
		items, err := content.LoadBank(path)
		if err != nil {
			return err
		}
		if err := st.ContentRepo().ReplaceTopic(ctx, topic, items); err != nil {
			return fmt.Errorf("import %s: %w", topic, err)
		}
		logger.Info("content imported", "topic_id", topic, "items", len(items))
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithPinger(st.Ping),
	}

	if cfg.RedisAddr != "" {
		rc, err := content.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rc.Close()
		opts = append(opts, server.WithContentCache(content.WithCache(st.ContentRepo(), rc, cfg.ContentTTL, logger)))
		logger.Info("content cache enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.ContentTTL)
	}

	if cfg.AMQPURL != "" {
		pub, err := server.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange, logger)
		if err != nil {
			return fmt.Errorf("connect amqp: %w", err)
		}
		defer pub.Close()
		opts = append(opts, server.WithPublisher(pub))
		logger.Info("session events enabled", "exchange", cfg.Exchange)
	}

	return server.New(cfg, st.SessionRepo(), st.ContentRepo(), opts...).ListenAndServe(ctx)
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/kristentruong11/sun11this/internal/config"
	"github.com/kristentruong11/sun11this/internal/log"
	"github.com/kristentruong11/sun11this/internal/store"
)

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Quản lý các cuộc trò chuyện",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Liệt kê các cuộc trò chuyện",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, s *store.Postgres) error {
			convs, err := s.ListConversations(ctx)
			if err != nil {
				return err
			}
			if len(convs) == 0 {
				fmt.Println("Chưa có cuộc trò chuyện nào.")
				return nil
			}
			for _, c := range convs {
				fmt.Printf("%s  %s  (%s)\n", c.ID, c.Title, c.LastMessageAt.Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <conversation-id>",
	Short: "Xóa một cuộc trò chuyện và toàn bộ tin nhắn của nó",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid conversation id %q: %w", args[0], err)
		}
		return withStore(cmd, func(ctx context.Context, s *store.Postgres) error {
			if err := s.DeleteConversation(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Đã xóa cuộc trò chuyện %s.\n", id)
			return nil
		})
	},
}

func init() {
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
	rootCmd.AddCommand(conversationsCmd)
}

// withStore opens a database-backed store for one subcommand invocation.
func withStore(cmd *cobra.Command, fn func(context.Context, *store.Postgres) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("%w: set SUHOC_DATABASE_URL", config.ErrInvalidDatabaseURL)
	}

	level := slog.LevelWarn
	if debugFlag {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, store.NewPostgres(pool, logger))
}

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/kristentruong11/sun11this/db"
	"github.com/kristentruong11/sun11this/internal/app"
	"github.com/kristentruong11/sun11this/internal/config"
	"github.com/kristentruong11/sun11this/internal/generate"
	"github.com/kristentruong11/sun11this/internal/kb"
	"github.com/kristentruong11/sun11this/internal/log"
	"github.com/kristentruong11/sun11this/internal/state"
	"github.com/kristentruong11/sun11this/internal/store"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Bắt đầu trò chuyện",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	apiKey, err := cfg.RequireAPIKey()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("%w: set SUHOC_DATABASE_URL", config.ErrInvalidDatabaseURL)
	}

	level := slog.LevelInfo
	if debugFlag {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})

	if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
		return fmt.Errorf("preparing database: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	lessons, err := kb.LoadPostgres(ctx, pool, logger)
	if err != nil {
		return fmt.Errorf("loading knowledge base: %w", err)
	}
	lookup := kb.NewIndex(lessons)
	logger.Info("knowledge base loaded", "lessons", lookup.Len())

	gen, err := generate.NewGemini(ctx, generate.Config{
		APIKey: apiKey,
		Model:  cfg.ModelName,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	st, err := state.New(cfg.StateDir, logger)
	if err != nil {
		return fmt.Errorf("opening state directory: %w", err)
	}

	a, err := app.New(app.Config{
		Store:        store.NewPostgres(pool, logger),
		Lookup:       lookup,
		Generator:    gen,
		State:        st,
		Logger:       logger,
		GradeMin:     cfg.GradeMin,
		GradeMax:     cfg.GradeMax,
		RefetchDelay: cfg.RefetchDelay,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("suhoc — trợ lý học Lịch sử. Gõ /help để xem lệnh, /quit để thoát.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("bạn> ")
		if !scanner.Scan() {
			fmt.Println("\nTạm biệt! 👋")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := handleCommand(ctx, a, input); quit {
				break
			}
			continue
		}

		res, err := a.SendMessage(ctx, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Lỗi: %v\n", err)
			continue
		}
		if res.Assistant.Content != "" {
			fmt.Println()
			fmt.Println(res.Assistant.Content)
			fmt.Println()
		}
	}
	return scanner.Err()
}

// handleCommand executes a slash command, returning true to exit the loop.
func handleCommand(ctx context.Context, a *app.App, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit":
		fmt.Println("Tạm biệt! 👋")
		return true

	case "/new":
		a.NewConversation()
		fmt.Println("Đã bắt đầu cuộc trò chuyện mới.")

	case "/list":
		convs, err := a.Conversations(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Lỗi: %v\n", err)
			return false
		}
		if len(convs) == 0 {
			fmt.Println("Chưa có cuộc trò chuyện nào.")
			return false
		}
		for i, c := range convs {
			marker := "  "
			if c.ID == a.Current() {
				marker = "* "
			}
			fmt.Printf("%s%d. %s (%s)\n", marker, i+1, c.Title, c.LastMessageAt.Format("2006-01-02 15:04"))
		}

	case "/open":
		if len(fields) < 2 {
			fmt.Println("Cách dùng: /open <số thứ tự trong /list>")
			return false
		}
		openConversation(ctx, a, fields[1])

	case "/help":
		fmt.Println("/new   — cuộc trò chuyện mới")
		fmt.Println("/list  — liệt kê các cuộc trò chuyện")
		fmt.Println("/open N — mở cuộc trò chuyện thứ N")
		fmt.Println("/quit  — thoát")

	default:
		fmt.Printf("Không hiểu lệnh %s. Gõ /help để xem danh sách.\n", fields[0])
	}
	return false
}

func openConversation(ctx context.Context, a *app.App, arg string) {
	convs, err := a.Conversations(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lỗi: %v\n", err)
		return
	}

	var n int
	if _, err := fmt.Sscanf(arg, "%d", &n); err != nil || n < 1 || n > len(convs) {
		fmt.Printf("Số không hợp lệ: %s\n", arg)
		return
	}

	conv := convs[n-1]
	msgs, err := a.SelectConversation(ctx, conv.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lỗi khi tải tin nhắn: %v\n", err)
	}
	fmt.Printf("— %s —\n", conv.Title)
	for _, m := range msgs {
		prefix := "bạn"
		if m.Role == store.RoleAssistant {
			prefix = "suhoc"
		}
		fmt.Printf("%s> %s\n", prefix, m.Content)
	}
	if a.IsSyncing(conv.ID) {
		fmt.Println("(đang đồng bộ với máy chủ…)")
	}
}

// Package cmd wires the CLI. The root command starts the interactive chat
// loop; subcommands manage conversations and print version information.
package cmd

import (
	"github.com/spf13/cobra"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "suhoc",
	Short: "Trợ lý học Lịch sử Việt Nam trong terminal",
	Long: `suhoc là trợ lý học tập môn Lịch sử cho học sinh lớp 10-12.

Chạy suhoc không có tham số để vào chế độ trò chuyện: chọn bài học
("Bài 1 Lớp 10"), hỏi nội dung, luyện trắc nghiệm, flashcard và câu
đúng-sai từ ngân hàng kiến thức.`,
	RunE: runChat,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}

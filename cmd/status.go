package cmd

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"postreel/internal/app"
	"postreel/internal/model"
	"postreel/pkg/config"
)

var statusStyles = map[model.Status]lipgloss.Style{
	model.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	model.StatusProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	model.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	model.StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}

var statusHeaderStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)

var statusCmd = &cobra.Command{
	Use:   "status <post-id>",
	Short: "Show generation tasks and videos for a post",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	postID := args[0]

	cfg := config.Load()
	rt, err := app.BuildRuntime(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	post, err := rt.Posts.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("post %s: %w", postID, err)
	}

	fmt.Println(statusHeaderStyle.Render(fmt.Sprintf("Post %s: %s", post.PostID, post.Title)))
	fmt.Printf("  videos: %d  claimed: %v\n", len(post.Videos), post.VideoGenerating)

	tasks, err := rt.Tasks.ByPostID(ctx, postID)
	if err != nil {
		return err
	}
	fmt.Println(statusHeaderStyle.Render("Tasks"))
	if len(tasks) == 0 {
		fmt.Println("  none")
	}
	for _, task := range tasks {
		line := fmt.Sprintf("  %s  %s  %s", task.ID, task.Type, renderStatus(task.Status))
		if task.Result != nil && task.Result.Error != "" {
			line += "  " + task.Result.Error
		}
		fmt.Println(line)
	}

	videos, err := rt.Videos.ByPostID(ctx, postID)
	if err != nil {
		return err
	}
	fmt.Println(statusHeaderStyle.Render("Videos"))
	if len(videos) == 0 {
		fmt.Println("  none")
	}
	for _, video := range videos {
		fmt.Printf("  %s  %s  %s  %.1fs  %s\n",
			video.ID, video.Type, renderStatus(video.Status), video.Duration, video.DownloadURL)
	}
	return nil
}

func renderStatus(s model.Status) string {
	if style, ok := statusStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

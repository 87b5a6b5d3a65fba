package cmd

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"postreel/internal/app"
	"postreel/internal/model"
	"postreel/pkg/config"
)

var (
	oncePostID   string
	onceScripted bool
	onceLanguage string
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Generate a single video",
	Long:  `Generate one video for a specific post, or for the next eligible post.`,
	RunE:  runOnce,
}

func init() {
	onceCmd.Flags().StringVarP(&oncePostID, "post", "p", "", "Post id to generate for (default: next eligible)")
	onceCmd.Flags().BoolVar(&onceScripted, "scripted", false, "Generate a scripted slideshow video")
	onceCmd.Flags().StringVarP(&onceLanguage, "language", "l", "", "Narration language code, e.g. en-US")
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := config.Load()
	rt, err := app.BuildRuntime(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	var post *model.Post
	if oncePostID != "" {
		post, err = rt.Posts.GetByID(ctx, oncePostID)
		if err != nil {
			return err
		}
	} else {
		post, err = rt.Posts.NextEligible(ctx)
		if err != nil {
			return err
		}
		if post == nil {
			return errors.New("no posts waiting for video generation")
		}
	}

	videoType := model.VideoTypeScrolling
	if onceScripted {
		videoType = model.VideoTypeScripted
	}

	slog.Info("Generating video...", "postId", post.PostID, "type", videoType)
	resp := rt.Service.GenerateVideoForPost(ctx, post, videoType, onceLanguage)
	if !resp.Success {
		if relErr := rt.Posts.ReleaseClaim(ctx, post.PostID); relErr != nil {
			slog.Warn("could not release claim", "postId", post.PostID, "error", relErr)
		}
		return errors.New(resp.Error)
	}

	slog.Info("Video ready", "url", resp.VideoURL, "duration", resp.Duration)
	return nil
}

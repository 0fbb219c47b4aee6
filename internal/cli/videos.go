package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna"
	"github.com/himanishpuri/ChromaDNA/pkg/utils"
	"github.com/spf13/cobra"
)

var listSignatures bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed videos",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name|id>",
	Short: "Remove a video and its signatures",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var (
	youtubeModel string
	youtubeName  string
)

var youtubeCmd = &cobra.Command{
	Use:   "add-youtube <url>",
	Short: "Download a YouTube video and index it",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddYouTube,
}

func init() {
	listCmd.Flags().BoolVarP(&listSignatures, "signatures", "s", false, "show stored signatures per video")
	youtubeCmd.Flags().StringVarP(&youtubeModel, "model", "m", "", "color models: gray, rgb, hsv or all")
	youtubeCmd.Flags().StringVar(&youtubeName, "name", "", "video id to store (default: YouTube id)")
	rootCmd.AddCommand(listCmd, deleteCmd, youtubeCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	videos, err := svc.ListVideos()
	if err != nil {
		return fmt.Errorf("failed to list videos: %w", err)
	}
	if len(videos) == 0 {
		cmd.Println("📭 Database is empty. Index videos with 'chromadna train'.")
		return nil
	}

	cmd.Printf("📚 %d indexed videos\n\n", len(videos))
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFRAMES\tFPS\tDURATION\tYOUTUBE\tID")
	for _, v := range videos {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.1fs\t%s\t%s\n", v.Name, v.FrameCount, v.FPS, float64(v.DurationMs)/1000, v.YouTubeID, v.ID)
		if !listSignatures {
			continue
		}
		sigs, err := svc.ListSignatures(v.Name)
		if err != nil {
			return err
		}
		for _, s := range sigs {
			fmt.Fprintf(w, "  └ %s\tbins=%d\tframes=%v\t\t\t\n", s.Model, s.Bins, s.Range)
		}
	}
	return w.Flush()
}

func runDelete(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	name := args[0]
	if utils.IsUUID(name) {
		v, err := svc.GetVideo(name)
		if err != nil {
			return err
		}
		name = v.Name
	}
	if err := svc.DeleteVideo(name); err != nil {
		return fmt.Errorf("failed to delete %s: %w", args[0], err)
	}
	cmd.Printf("🗑️  Deleted %s\n", name)
	return nil
}

func runAddYouTube(cmd *cobra.Command, args []string) error {
	if !utils.IsYouTubeURL(args[0]) {
		return fmt.Errorf("not a YouTube URL: %s", args[0])
	}
	ms, err := parseModels(youtubeModel)
	if err != nil {
		return err
	}

	svc, err := newService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	cmd.Println("📥 Downloading video from YouTube...")
	cmd.Println("   This may take a few moments depending on video length")
	v, err := svc.IndexYouTube(cmd.Context(), args[0], chromadna.IndexOptions{Models: ms, Name: youtubeName})
	if err != nil {
		return err
	}

	cmd.Println("\n✅ Successfully indexed video!")
	cmd.Printf("   Name:    %s\n", v.Name)
	cmd.Printf("   ID:      %s\n", v.ID)
	cmd.Printf("   YouTube: %s\n", v.YouTubeID)
	cmd.Printf("   Frames:  %d\n", v.FrameCount)
	return nil
}

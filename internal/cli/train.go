package cli

import (
	"fmt"
	"os"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna"
	"github.com/spf13/cobra"
)

var (
	trainModel   string
	trainName    string
	trainWorkers int
	trainStart   int
	trainEnd     int
)

var trainCmd = &cobra.Command{
	Use:     "train <video|dir>...",
	Aliases: []string{"index", "add"},
	Short:   "Index reference videos",
	Long: `Computes the averaged color histogram of each reference video under every
selected color model and stores it in the database. Directories are scanned
for video files; a file that cannot be indexed is reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVarP(&trainModel, "model", "m", "", "color models: gray, rgb, hsv or all")
	trainCmd.Flags().StringVar(&trainName, "name", "", "video id to store (single file only; default: file name)")
	trainCmd.Flags().IntVarP(&trainWorkers, "workers", "j", 0, "videos indexed in parallel")
	trainCmd.Flags().IntVar(&trainStart, "start", -1, "first frame to average")
	trainCmd.Flags().IntVar(&trainEnd, "end", -1, "frame after the last frame to average")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	ms, err := parseModels(trainModel)
	if err != nil {
		return err
	}
	rng, err := frameRangeFlag(trainStart, trainEnd)
	if err != nil {
		return err
	}
	if trainName != "" && len(args) > 1 {
		return fmt.Errorf("--name needs exactly one video")
	}

	var extra []chromadna.Option
	if trainWorkers > 0 {
		extra = append(extra, chromadna.WithWorkers(trainWorkers))
	}
	svc, err := newService(cmd, extra...)
	if err != nil {
		return err
	}
	defer svc.Close()

	opts := chromadna.IndexOptions{Models: ms, Name: trainName, Range: rng}
	ctx := cmd.Context()
	failures := 0

	cmd.Println("🎬 Indexing reference videos...")
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			fail(cmd, "%s: %v", arg, err)
			failures++
			continue
		}

		if !info.IsDir() {
			v, err := svc.IndexVideo(ctx, arg, opts)
			if err != nil {
				fail(cmd, "Failed to index %s: %v", arg, err)
				failures++
				continue
			}
			cmd.Printf("✅ %s (%d frames)\n", v.Name, v.FrameCount)
			continue
		}

		report, err := svc.IndexDirectory(ctx, arg, opts)
		if err != nil {
			return err
		}
		for _, v := range report.Indexed {
			cmd.Printf("✅ %s (%d frames)\n", v.Name, v.FrameCount)
		}
		for _, f := range report.Failed {
			fail(cmd, "Failed to index %s: %v", f.Path, f.Err)
		}
		failures += len(report.Failed)
	}

	if failures > 0 {
		return fmt.Errorf("%d video(s) could not be indexed", failures)
	}
	cmd.Println("\n✅ Indexing complete")
	return nil
}

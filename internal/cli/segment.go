package cli

import (
	"encoding/json"
	"fmt"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/spf13/cobra"
)

var (
	segmentModel     string
	segmentThreshold float64
	segmentJSON      bool
)

var segmentCmd = &cobra.Command{
	Use:   "segment <video>",
	Short: "Split a video into shots",
	Long: `Compares the color histograms of consecutive frames and starts a new shot
wherever their distance exceeds the threshold. The threshold depends on the
metric and the footage; calibrate it on a known video.`,
	Args: cobra.ExactArgs(1),
	RunE: runSegment,
}

func init() {
	segmentCmd.Flags().StringVarP(&segmentModel, "model", "m", "", "color model: gray, rgb or hsv")
	segmentCmd.Flags().Float64VarP(&segmentThreshold, "threshold", "t", 0, "cut threshold on the frame-to-frame distance")
	segmentCmd.Flags().BoolVar(&segmentJSON, "json", false, "output shots as JSON")
	rootCmd.AddCommand(segmentCmd)
}

type shotOutput struct {
	Index      int     `json:"index"`
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
}

func runSegment(cmd *cobra.Command, args []string) error {
	name := pick(segmentModel, cfg.Segment.Model)
	m, err := models.ParseColorModel(name)
	if err != nil {
		return err
	}

	svc, err := newService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	threshold := cfg.Segment.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = segmentThreshold
	}

	res, err := svc.Segment(cmd.Context(), args[0], chromadna.SegmentOptions{
		Model:     m,
		Threshold: &threshold,
	})
	if err != nil {
		return fmt.Errorf("segmentation failed: %w", err)
	}

	out := make([]shotOutput, len(res.Shots))
	for i, s := range res.Shots {
		out[i] = shotOutput{
			Index:      s.Index,
			StartFrame: s.StartFrame,
			EndFrame:   s.EndFrame,
			StartSec:   s.Start.Seconds(),
			EndSec:     s.End.Seconds(),
		}
	}

	if segmentJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal shots: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("🎞️  %d frames, %d shots\n\n", res.FrameCount, len(out))
	for _, s := range out {
		cmd.Printf("   #%-3d frames %6d - %-6d  %8.2fs - %.2fs\n", s.Index, s.StartFrame, s.EndFrame, s.StartSec, s.EndSec)
	}
	return nil
}

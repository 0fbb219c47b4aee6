package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video"
	"github.com/spf13/cobra"
)

var (
	matchModel     string
	matchStart     int
	matchEnd       int
	matchFrom      time.Duration
	matchTo        time.Duration
	matchStabilize bool
	matchSkipEmpty bool
	matchJSON      bool
)

var matchCmd = &cobra.Command{
	Use:     "test <clip>",
	Aliases: []string{"match", "identify"},
	Short:   "Identify which indexed video a clip comes from",
	Long: `Every frame of the clip votes for the indexed video whose averaged histogram
is nearest. Votes of the selected color models are summed into the ensemble
decision; accuracy is the winner's share of all votes.`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.StringVarP(&matchModel, "model", "m", "", "color models: gray, rgb, hsv or all")
	f.IntVar(&matchStart, "start", -1, "first query frame")
	f.IntVar(&matchEnd, "end", -1, "frame after the last query frame")
	f.DurationVar(&matchFrom, "from", 0, "crop the query starting at this time (e.g. 1.5s)")
	f.DurationVar(&matchTo, "to", 0, "crop the query ending at this time")
	f.BoolVar(&matchStabilize, "stabilize", false, "stabilize the clip with ffmpeg vid.stab first")
	f.BoolVar(&matchSkipEmpty, "skip-empty", false, "leave out color models with no indexed videos")
	f.BoolVar(&matchJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	ms, err := parseModels(matchModel)
	if err != nil {
		return err
	}
	rng, err := frameRangeFlag(matchStart, matchEnd)
	if err != nil {
		return err
	}

	var extra []chromadna.Option
	if rng == nil && (matchFrom > 0 || matchTo > 0) {
		extra = append(extra, chromadna.WithRangeSelector(video.SecondsRange{From: matchFrom, To: matchTo}))
	}
	if matchSkipEmpty {
		extra = append(extra, chromadna.WithEmptyModelPolicy(chromadna.EmptyModelSkip))
	}

	svc, err := newService(cmd, extra...)
	if err != nil {
		return err
	}
	defer svc.Close()

	if !matchJSON {
		cmd.Println("🔍 Matching clip against database...")
	}
	res, err := svc.Identify(cmd.Context(), args[0], chromadna.IdentifyOptions{
		Models:    ms,
		Range:     rng,
		Stabilize: matchStabilize,
	})
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}

	if matchJSON {
		data, err := json.MarshalIndent(toMatchOutput(res), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("\n   Frames:   %v\n", res.Range)
	for _, pm := range res.PerModel {
		cmd.Printf("   %-5s → %s (%.1f%%)\n", pm.Model, pm.Winner, pm.Accuracy*100)
	}
	for _, m := range res.Skipped {
		cmd.Printf("   %-5s → skipped (nothing indexed)\n", m)
	}
	cmd.Printf("\n🎯 Best match: %s\n", res.Ensemble.VideoID)
	cmd.Printf("   Accuracy: %.1f%% (%.0f of %.0f votes)\n", res.Ensemble.Accuracy*100, res.Ensemble.Votes, res.Ensemble.TotalVotes)
	if res.Video != nil && res.Video.YouTubeID != "" {
		cmd.Printf("   YouTube:  https://youtube.com/watch?v=%s\n", res.Video.YouTubeID)
	}
	return nil
}

type modelOutput struct {
	Model    string         `json:"model"`
	Winner   string         `json:"winner"`
	Accuracy float64        `json:"accuracy"`
	Votes    map[string]int `json:"votes"`
}

type matchOutput struct {
	VideoID    string        `json:"video_id"`
	Accuracy   float64       `json:"accuracy"`
	Votes      float64       `json:"votes"`
	TotalVotes float64       `json:"total_votes"`
	StartFrame int           `json:"start_frame"`
	EndFrame   int           `json:"end_frame"`
	Models     []modelOutput `json:"models"`
	Skipped    []string      `json:"skipped,omitempty"`
	Ranking    []string      `json:"ranking"`
}

func toMatchOutput(res *chromadna.IdentifyResult) matchOutput {
	out := matchOutput{
		VideoID:    res.Ensemble.VideoID,
		Accuracy:   res.Ensemble.Accuracy,
		Votes:      res.Ensemble.Votes,
		TotalVotes: res.Ensemble.TotalVotes,
		StartFrame: res.Range.Start,
		EndFrame:   res.Range.End,
	}
	for _, pm := range res.PerModel {
		out.Models = append(out.Models, modelOutput{
			Model:    string(pm.Model),
			Winner:   pm.Winner,
			Accuracy: pm.Accuracy,
			Votes:    pm.Tally,
		})
	}
	for _, m := range res.Skipped {
		out.Skipped = append(out.Skipped, string(m))
	}
	for id := range res.Ensemble.Combined {
		out.Ranking = append(out.Ranking, id)
	}
	c := res.Ensemble.Combined
	sort.Slice(out.Ranking, func(i, j int) bool {
		a, b := out.Ranking[i], out.Ranking[j]
		if a == out.VideoID || b == out.VideoID {
			return a == out.VideoID
		}
		if c[a] != c[b] {
			return c[a] > c[b]
		}
		return a < b
	})
	return out
}

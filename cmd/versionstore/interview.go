package versionstore

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cmdp "github.com/merelin/diffa-sub000/cmd"
	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/hash"
	"github.com/merelin/diffa-sub000/interview"
	"github.com/merelin/diffa-sub000/participant"
	"github.com/merelin/diffa-sub000/scan"
	"github.com/merelin/diffa-sub000/vstore"
)

var interviewCmd = &cobra.Command{
	Use:   "interview <endpoint> <records.json>",
	Short: "Interview a participant holding the records of a file",
	Long: `Interview a participant whose records are read from a JSON file in the
format accepted by ingest, and list the entities that differ from the
endpoint. The local endpoint is reported on the left.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdp.Run(cmd, func(ctx context.Context, app *cmdp.App) error {
			records, err := readRecords(args[1])
			if err != nil {
				return err
			}
			fn, err := hash.ByName(app.Config.Hash)
			if err != nil {
				return err
			}
			opts := []participant.Opt{
				participant.WithLogger(app.Named(cmdp.ParticipantLogger)),
				participant.WithHash(fn),
			}
			if layout := app.Store.Layout(args[0]); layout != nil {
				opts = append(opts, participant.WithLayout(layout))
			}
			p := participant.NewMemory(records, opts...)
			coordinator := interview.New(app.Store,
				interview.WithLogger(app.Named(cmdp.InterviewLogger)),
				interview.WithConfig(app.Config.Interview),
			)
			out, err := coordinator.Run(ctx, args[0], p)
			if err != nil {
				return err
			}
			app.Logger().Info("interview finished",
				zap.String("endpoint", args[0]),
				zap.Int("records", p.Len()),
				zap.Object("outcome", out),
			)
			return printJSON(cmd.OutOrStdout(), differencesJSON(out.Differences))
		})
	},
}

func readRecords(path string) ([]scan.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	events, err := vstore.DecodeEvents(f)
	if err != nil {
		return nil, fmt.Errorf("read records %s: %w", path, err)
	}
	records := make([]scan.Record, 0, len(events))
	for _, ev := range events {
		u, ok := ev.(*types.Upsert)
		if !ok {
			return nil, fmt.Errorf("read records %s: record %q without version", path, ev.EntityID())
		}
		records = append(records, scan.Record{
			ID:         u.ID,
			Version:    u.Version,
			Attributes: u.Attributes,
			LastUpdate: u.LastUpdated,
		})
	}
	return records, nil
}

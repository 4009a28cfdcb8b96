// Package versionstore contains the command line of the version store.
package versionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cmdp "github.com/merelin/diffa-sub000/cmd"
	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/vstore"
)

// Cmd is the root command.
var Cmd = &cobra.Command{
	Use:           "versionstore",
	Short:         "Merkle indexed version store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// VersionCmd prints the version.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), cmdp.Version)
		if cmdp.Commit != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "+%s", cmdp.Commit)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <endpoint> [events.json]",
	Short: "Apply change events read from a file or stdin",
	Long: `Apply change events to the endpoint. Events are a JSON object or an array
of objects with id, version, lastUpdate and attributes. An event without
a version deletes the entity.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdp.Run(cmd, func(ctx context.Context, app *cmdp.App) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 2 {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			events, err := vstore.DecodeEvents(in)
			if err != nil {
				return err
			}
			for _, ev := range events {
				if err := app.Store.OnEvent(ctx, args[0], ev); err != nil {
					return err
				}
			}
			app.Logger().Info("events ingested", zap.String("endpoint", args[0]), zap.Int("events", len(events)))
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <endpoint> <id>...",
	Short: "Delete entities",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdp.Run(cmd, func(ctx context.Context, app *cmdp.App) error {
			for _, id := range args[1:] {
				if err := app.Store.DeleteEvent(ctx, args[0], id); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var deltifyCmd = &cobra.Command{
	Use:   "deltify <left> <right>",
	Short: "Record the top level buckets whose digests differ between two endpoints",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdp.Run(cmd, func(ctx context.Context, app *cmdp.App) error {
			diff, err := app.Store.Deltify(ctx, types.PairProjection{Left: args[0], Right: args[1]})
			if err != nil {
				return err
			}
			type bucket struct {
				Name  string `json:"name"`
				Left  string `json:"left,omitempty"`
				Right string `json:"right,omitempty"`
			}
			rst := []bucket{}
			for _, name := range diff.Mismatched() {
				l, r := diff.Sides(name)
				rst = append(rst, bucket{Name: name, Left: l, Right: r})
			}
			return printJSON(cmd.OutOrStdout(), rst)
		})
	},
}

var deltaCmd = &cobra.Command{
	Use:   "delta <left> <right>",
	Short: "Show the buckets recorded by the last deltify of two endpoints",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdp.Run(cmd, func(ctx context.Context, app *cmdp.App) error {
			rollup, err := app.Store.GetDeltaDigest(ctx, types.PairProjection{Left: args[0], Right: args[1]})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rollupJSON(rollup))
		})
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <left> <right> [bucket]",
	Short: "List entities whose versions differ below a bucket of the entity id tree",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdp.Run(cmd, func(ctx context.Context, app *cmdp.App) error {
			bucket := ""
			if len(args) == 3 {
				bucket = args[2]
			}
			diffs, err := app.Store.GetOutrightDifferences(ctx, types.PairProjection{Left: args[0], Right: args[1]}, bucket)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), differencesJSON(diffs))
		})
	},
}

var digestsTree string

var digestsCmd = &cobra.Command{
	Use:   "digests <endpoint> [path]",
	Short: "Show digests of the children of a bucket",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := parseTree(digestsTree)
		if err != nil {
			return err
		}
		return cmdp.Run(cmd, func(ctx context.Context, app *cmdp.App) error {
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			rollup, err := app.Store.ReadDigests(ctx, tree, args[0], path)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rollupJSON(rollup))
		})
	},
}

var sliceSizeCmd = &cobra.Command{
	Use:   "slice-size <endpoint> [size]",
	Short: "Show or change the max slice size of an endpoint",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdp.Run(cmd, func(ctx context.Context, app *cmdp.App) error {
			if len(args) == 2 {
				size, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("parse size: %w", err)
				}
				return app.Store.SetMaxSliceSize(ctx, args[0], size)
			}
			size, err := app.Store.MaxSliceSize(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), size)
			return nil
		})
	},
}

func init() {
	cmdp.AddCommands(Cmd)
	digestsCmd.Flags().StringVar(&digestsTree, "tree", types.EntityIDTree.String(),
		fmt.Sprintf("tree to read, %s or %s", types.EntityIDTree, types.UserTree))
	Cmd.AddCommand(VersionCmd, ingestCmd, deleteCmd, deltifyCmd, deltaCmd, diffCmd, digestsCmd, sliceSizeCmd, interviewCmd)
}

func parseTree(s string) (types.Tree, error) {
	for _, t := range []types.Tree{types.EntityIDTree, types.UserTree} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tree %q", s)
}

type bucketJSON struct {
	Name   string `json:"name"`
	Digest string `json:"digest"`
}

func rollupJSON(rollup types.TreeLevelRollup) any {
	members := []bucketJSON{}
	for _, name := range rollup.Names() {
		members = append(members, bucketJSON{Name: name, Digest: rollup.Members[name].Digest})
	}
	return struct {
		Leaf    bool         `json:"leaf"`
		Members []bucketJSON `json:"members"`
	}{Leaf: rollup.IsLeaf, Members: members}
}

type differenceJSON struct {
	ID    string  `json:"id"`
	Left  *string `json:"left"`
	Right *string `json:"right"`
}

func versionOrNull(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func differencesJSON(diffs types.EntityDifferences) []differenceJSON {
	rst := make([]differenceJSON, 0, len(diffs))
	for _, d := range diffs {
		rst = append(rst, differenceJSON{ID: d.ID, Left: versionOrNull(d.Left), Right: versionOrNull(d.Right)})
	}
	return rst
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

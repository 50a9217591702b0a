package command

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/blobtier-go/internal/cli/output"
	"github.com/yndnr/blobtier-go/internal/infra/buildinfo"
	"github.com/yndnr/blobtier-go/internal/storage/disk"
	"github.com/yndnr/blobtier-go/internal/storage/keycodec"
)

// EntryRow is one record of a namespace listing.
type EntryRow struct {
	ID       string       `json:"id" yaml:"id"`
	Kind     string       `json:"kind" yaml:"kind"`
	Size     output.Bytes `json:"size" yaml:"size"`
	Original string       `json:"original,omitempty" yaml:"original,omitempty" table:"wide"`
}

// NamespaceInfo describes an opened namespace.
type NamespaceInfo struct {
	Namespace   string `json:"namespace" yaml:"namespace"`
	StoragePath string `json:"storage_path" yaml:"storage_path"`
	Backend     string `json:"backend" yaml:"backend"`
	Codec       string `json:"codec" yaml:"codec"`
	Quality     int    `json:"quality" yaml:"quality"`
	Records     int    `json:"records" yaml:"records"`
	Version     string `json:"version" yaml:"version"`
}

// ListCommand lists the disk records of the namespace.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List disk records, or only KEY and its variants",
		ArgsUsage: "[KEY]",
		Action:    namespaceList,
	}
}

func namespaceList(c *cli.Context) error {
	if c.NArg() > 1 {
		return cli.Exit("usage: ls [KEY]", 2)
	}
	prefix := ""
	if c.NArg() == 1 {
		prefix = keycodec.Identifier(c.Args().First())
	}

	return withBackend(c, func(_ blobStore, backend disk.Backend) error {
		ids, err := backend.List(c.Context, prefix)
		if err != nil {
			return err
		}
		sort.Strings(ids)

		rows := make([]EntryRow, 0, len(ids))
		for _, id := range ids {
			data, err := backend.Read(c.Context, id)
			if err != nil {
				// Removed between List and Read.
				continue
			}
			row := EntryRow{ID: id, Kind: "original", Size: output.Bytes(len(data))}
			if keycodec.IsDerived(id) {
				row.Kind = "variant"
				row.Original = keycodec.OriginalOf(id)
			}
			rows = append(rows, row)
		}
		return printResult(c, rows)
	})
}

// ClearCommand empties the namespace.
func ClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every record of the namespace",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Confirm the clear",
			},
		},
		Action: namespaceClear,
	}
}

func namespaceClear(c *cli.Context) error {
	if !c.Bool("yes") {
		return cli.Exit("refusing to clear without --yes", 2)
	}
	return withStore(c, func(s blobStore) error {
		if err := s.Clear(c.Context); err != nil {
			return err
		}
		fmt.Fprintf(c.App.ErrWriter, "cleared namespace %s\n", s.Namespace())
		return nil
	})
}

// InfoCommand shows where and how the namespace is stored.
func InfoCommand() *cli.Command {
	return &cli.Command{
		Name:   "info",
		Usage:  "Show namespace settings and record count",
		Action: namespaceInfo,
	}
}

func namespaceInfo(c *cli.Context) error {
	cfg := GetConfig(c)
	return withBackend(c, func(s blobStore, backend disk.Backend) error {
		ids, err := backend.List(c.Context, "")
		if err != nil {
			return err
		}
		return printResult(c, NamespaceInfo{
			Namespace:   s.Namespace(),
			StoragePath: s.StoragePath(),
			Backend:     cfg.Backend,
			Codec:       cfg.Codec,
			Quality:     s.Quality(),
			Records:     len(ids),
			Version:     buildinfo.String(),
		})
	})
}

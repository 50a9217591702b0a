package command

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/blobtier-go/internal/core/domain"
	"github.com/yndnr/blobtier-go/internal/storage/keycodec"
)

// PutCommand stores a file under a key.
func PutCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "Store a file (or stdin) under KEY",
		ArgsUsage: "KEY [FILE|-]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-memory",
				Usage: "Write to disk only",
			},
		},
		Action: blobPut,
	}
}

func blobPut(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return cli.Exit("usage: put KEY [FILE|-]", 2)
	}
	key := c.Args().Get(0)

	data, err := readInput(c, c.Args().Get(1))
	if err != nil {
		return err
	}

	return withStore(c, func(s blobStore) error {
		if err := s.Put(c.Context, key, data, !c.Bool("no-memory")); err != nil {
			return err
		}
		fmt.Fprintf(c.App.ErrWriter, "stored %q (%d bytes) in %s\n", key, len(data), s.Namespace())
		return nil
	})
}

// GetCommand writes a stored value.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Write the value stored under KEY to stdout or a file",
		ArgsUsage: "KEY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Write to this file instead of stdout",
			},
		},
		Action: blobGet,
	}
}

func blobGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: get KEY", 2)
	}
	key := c.Args().First()

	return withStore(c, func(s blobStore) error {
		data, ok, err := s.Get(c.Context, key)
		if err != nil {
			return err
		}
		if !ok {
			return notFound(key)
		}
		return writeOutput(c, c.String("file"), data)
	})
}

// CopyCommand duplicates a stored value.
func CopyCommand() *cli.Command {
	return &cli.Command{
		Name:      "cp",
		Usage:     "Copy the value stored under FROM to TO",
		ArgsUsage: "FROM TO",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-memory",
				Usage: "Do not duplicate the memory entry",
			},
		},
		Action: blobCopy,
	}
}

func blobCopy(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: cp FROM TO", 2)
	}
	from, to := c.Args().Get(0), c.Args().Get(1)

	return withStore(c, func(s blobStore) error {
		if err := s.Copy(c.Context, from, to, !c.Bool("no-memory")); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return notFound(from)
			}
			return err
		}
		fmt.Fprintf(c.App.ErrWriter, "copied %q to %q\n", from, to)
		return nil
	})
}

// RemoveCommand removes a value and, optionally, its variants.
func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Remove the value stored under KEY",
		ArgsUsage: "KEY",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "variants",
				Usage: "Also remove every cached variant of KEY",
			},
		},
		Action: blobRemove,
	}
}

func blobRemove(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: rm KEY", 2)
	}
	key := c.Args().First()

	return withStore(c, func(s blobStore) error {
		err := s.Remove(c.Context, key)
		missing := errors.Is(err, domain.ErrNotFound)
		if err != nil && !missing {
			return err
		}

		if c.Bool("variants") {
			n, err := s.PurgeVariants(c.Context, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.ErrWriter, "removed %d variant(s) of %q\n", n, key)
		}
		if missing {
			return notFound(key)
		}
		fmt.Fprintf(c.App.ErrWriter, "removed %q\n", key)
		return nil
	})
}

// FitCommand produces a scaled variant.
func FitCommand() *cli.Command {
	return &cli.Command{
		Name:      "fit",
		Usage:     "Write KEY scaled to fit WIDTHxHEIGHT, computing and caching it if needed",
		ArgsUsage: "KEY",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "width",
				Usage:    "Bounding box width",
				Required: true,
			},
			&cli.IntFlag{
				Name:     "height",
				Usage:    "Bounding box height",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Write to this file instead of stdout",
			},
		},
		Action: blobFit,
	}
}

func blobFit(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: fit --width W --height H KEY", 2)
	}
	key := c.Args().First()
	fit := keycodec.Fit{Width: c.Int("width"), Height: c.Int("height")}
	if !fit.Valid() {
		return cli.Exit("width and height must be positive", 2)
	}

	return withStore(c, func(s blobStore) error {
		data, fromCache, err := s.Fit(c.Context, key, fit)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return notFound(key)
			}
			return err
		}
		state := "miss"
		if fromCache {
			state = "hit"
		}
		fmt.Fprintf(c.App.ErrWriter, "%s %s (cache %s)\n", key, fit.VariantKey(), state)
		return writeOutput(c, c.String("file"), data)
	})
}

// readInput reads path, or the app's reader for "" and "-".
func readInput(c *cli.Context, path string) ([]byte, error) {
	if path == "" || path == "-" {
		r := c.App.Reader
		if r == nil {
			r = os.Stdin
		}
		return io.ReadAll(r)
	}
	return os.ReadFile(path)
}

// writeOutput writes data to path, or the app's writer when path is "".
func writeOutput(c *cli.Context, path string, data []byte) error {
	if path == "" {
		_, err := c.App.Writer.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func notFound(key string) error {
	return cli.Exit(fmt.Sprintf("not found: %q", key), 3)
}

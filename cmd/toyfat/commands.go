package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/toyfat"
	"github.com/hupe1980/toyfat/disk"
	"github.com/hupe1980/toyfat/resource"
	"github.com/hupe1980/toyfat/snapshot"
	"github.com/spf13/pflag"
)

func rootCommand() *command {
	return &command{
		Name:    "toyfat",
		Summary: "Manage toyfat disk images.",
		Subcommands: []*command{
			mkdiskCommand(),
			formatCommand(),
			lsCommand(),
			treeCommand(),
			mkdirCommand(),
			touchCommand(),
			writeCommand(),
			catCommand(),
			rmCommand(),
			chattrCommand(),
			statCommand(),
			fsckCommand(),
			dumpCommand(),
			snapshotCommand(),
		},
	}
}

func mkdiskCommand() *command {
	return &command{
		Name:    "mkdisk",
		Summary: "Create and format a new disk image",
		Flags: func(fs *pflag.FlagSet) {
			fs.Bool("no-format", false, "leave the image zero-filled")
		},
		Run: func(_ context.Context, a *app, fs *pflag.FlagSet, _ []string) error {
			if err := disk.Create(a.cfg.Image); err != nil {
				return err
			}
			if noFormat, _ := fs.GetBool("no-format"); noFormat {
				return nil
			}
			return a.withFS(func(fsys *toyfat.FileSystem) error {
				return fsys.Format()
			})
		},
	}
}

func formatCommand() *command {
	return &command{
		Name:    "format",
		Summary: "Erase the image and create an empty filesystem",
		Run: func(_ context.Context, a *app, _ *pflag.FlagSet, _ []string) error {
			return a.withFS(func(fsys *toyfat.FileSystem) error {
				return fsys.Format()
			})
		},
	}
}

func optionalPath(args []string) string {
	if len(args) == 0 {
		return "/"
	}
	return args[0]
}

func lsCommand() *command {
	return &command{
		Name:    "ls",
		Summary: "List a directory",
		Usage:   "[path]",
		Args:    -1,
		Run: func(_ context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			return a.withFS(func(fsys *toyfat.FileSystem) error {
				e, err := fsys.Resolve(optionalPath(args))
				if err != nil {
					return err
				}
				entries := []*toyfat.Entry{e}
				if e.IsDir() {
					if entries, err = e.Children(); err != nil {
						return err
					}
				}

				tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
				for _, c := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
						c.Attributes(), c.Name(), c.StartBlock(), c.BlockCount(), humanize.IBytes(uint64(c.Size())))
				}
				return tw.Flush()
			})
		},
	}
}

func treeCommand() *command {
	return &command{
		Name:    "tree",
		Summary: "Print the directory tree",
		Usage:   "[path]",
		Args:    -1,
		Run: func(_ context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			return a.withFS(func(fsys *toyfat.FileSystem) error {
				e, err := fsys.Resolve(optionalPath(args))
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, e.FullPath())
				return printTree(a.stdout, e, "")
			})
		},
	}
}

func printTree(w io.Writer, dir *toyfat.Entry, indent string) error {
	if !dir.IsDir() {
		return nil
	}
	children, err := dir.Children()
	if err != nil {
		return err
	}
	for i, c := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}
		name := c.Name()
		if c.IsDir() {
			name += "/"
		}
		fmt.Fprintf(w, "%s%s%s\n", indent, branch, name)
		if err := printTree(w, c, indent+next); err != nil {
			return err
		}
	}
	return nil
}

func mkdirCommand() *command {
	return &command{
		Name:    "mkdir",
		Summary: "Create a directory",
		Usage:   "<path>",
		Args:    1,
		Run: func(_ context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			return a.withFS(func(fsys *toyfat.FileSystem) error {
				return fsys.CreateDirectory(args[0])
			})
		},
	}
}

func touchCommand() *command {
	return &command{
		Name:    "touch",
		Summary: "Create an empty file",
		Usage:   "<path>",
		Args:    1,
		Flags: func(fs *pflag.FlagSet) {
			fs.BoolP("read-only", "r", false, "create the file read-only")
			fs.BoolP("system", "s", false, "mark the file as a system file")
		},
		Run: func(_ context.Context, a *app, fs *pflag.FlagSet, args []string) error {
			attrs := toyfat.File
			if sys, _ := fs.GetBool("system"); sys {
				attrs |= toyfat.System
			}
			ro, _ := fs.GetBool("read-only")
			return a.withFS(func(fsys *toyfat.FileSystem) error {
				if err := fsys.CreateFile(args[0], attrs); err != nil {
					return err
				}
				if !ro {
					return nil
				}
				// Files are created writable; the flag is applied once closed.
				if err := fsys.CloseFile(args[0]); err != nil {
					return err
				}
				return fsys.SetAttributes(args[0], attrs|toyfat.ReadOnly)
			})
		},
	}
}

func writeCommand() *command {
	return &command{
		Name:    "write",
		Summary: "Append text or stdin to a file, creating it if needed",
		Usage:   "<path> [text...]",
		Args:    -1,
		Run: func(_ context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			if len(args) == 0 {
				return errors.New("write: missing path")
			}
			path := args[0]

			var src io.Reader = a.stdin
			if len(args) > 1 {
				src = strings.NewReader(strings.Join(args[1:], " "))
			}

			return a.withFS(func(fsys *toyfat.FileSystem) error {
				if !fsys.Exists(path) {
					if err := fsys.CreateFile(path, toyfat.File); err != nil {
						return err
					}
				}
				n, err := io.Copy(fsys.Writer(path), src)
				if err != nil {
					return err
				}
				a.logger.Debug("appended", "path", path, "bytes", n)
				return fsys.CloseFile(path)
			})
		},
	}
}

func catCommand() *command {
	return &command{
		Name:    "cat",
		Summary: "Print a file",
		Usage:   "<path>",
		Args:    1,
		Run: func(_ context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			return a.withFS(func(fsys *toyfat.FileSystem) error {
				if err := fsys.OpenFile(args[0], toyfat.Read); err != nil {
					return err
				}
				_, err := io.Copy(a.stdout, fsys.Reader(args[0]))
				return err
			})
		},
	}
}

func rmCommand() *command {
	return &command{
		Name:    "rm",
		Summary: "Delete a file or an empty directory",
		Usage:   "<path>",
		Args:    1,
		Run: func(_ context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			return a.withFS(func(fsys *toyfat.FileSystem) error {
				return fsys.DeleteEntry(args[0])
			})
		},
	}
}

func chattrCommand() *command {
	return &command{
		Name:    "chattr",
		Summary: "Change file attributes: +r -r +s -s",
		Usage:   "<path> <+r|-r|+s|-s>...",
		Args:    -1,
		Run: func(_ context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			if len(args) < 2 {
				return errors.New("chattr: need a path and at least one change")
			}
			return a.withFS(func(fsys *toyfat.FileSystem) error {
				e, err := fsys.Resolve(args[0])
				if err != nil {
					return err
				}
				attrs := e.Attributes()
				for _, change := range args[1:] {
					if attrs, err = applyChange(attrs, change); err != nil {
						return err
					}
				}
				return fsys.SetAttributes(args[0], attrs)
			})
		},
	}
}

func applyChange(attrs toyfat.Attributes, change string) (toyfat.Attributes, error) {
	if len(change) != 2 {
		return attrs, fmt.Errorf("chattr: bad change %q", change)
	}
	var bit toyfat.Attributes
	switch change[1] {
	case 'r':
		bit = toyfat.ReadOnly
	case 's':
		bit = toyfat.System
	default:
		return attrs, fmt.Errorf("chattr: unknown attribute %q", change[1:])
	}
	switch change[0] {
	case '+':
		return attrs | bit, nil
	case '-':
		return attrs &^ bit, nil
	}
	return attrs, fmt.Errorf("chattr: bad change %q", change)
}

func statCommand() *command {
	return &command{
		Name:    "stat",
		Summary: "Show filesystem usage or entry details",
		Usage:   "[path]",
		Args:    -1,
		Run: func(_ context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			return a.withFS(func(fsys *toyfat.FileSystem) error {
				tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
				if len(args) == 0 {
					s := fsys.Stat()
					fmt.Fprintf(tw, "image:\t%s\n", a.cfg.Image)
					fmt.Fprintf(tw, "capacity:\t%s (%d blocks)\n", humanize.IBytes(disk.Capacity), s.TotalBlocks)
					fmt.Fprintf(tw, "used:\t%s (%d blocks)\n", humanize.IBytes(uint64(s.UsedBlocks*disk.BlockSize)), s.UsedBlocks)
					fmt.Fprintf(tw, "free:\t%s (%d blocks)\n", humanize.IBytes(uint64(s.FreeBlocks*disk.BlockSize)), s.FreeBlocks)
					fmt.Fprintf(tw, "reserved:\t%d blocks\n", s.ReservedBlocks)
					return tw.Flush()
				}

				e, err := fsys.Resolve(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "path:\t%s\n", e.FullPath())
				fmt.Fprintf(tw, "attributes:\t%s\n", e.Attributes())
				fmt.Fprintf(tw, "start block:\t%d\n", e.StartBlock())
				fmt.Fprintf(tw, "blocks:\t%d\n", e.BlockCount())
				fmt.Fprintf(tw, "size:\t%s\n", humanize.IBytes(uint64(e.Size())))
				if e.IsFile() {
					if err := fsys.OpenFile(args[0], toyfat.Read); err != nil {
						return err
					}
					data, err := io.ReadAll(fsys.Reader(args[0]))
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "length:\t%d bytes\n", len(data))
				}
				return tw.Flush()
			})
		},
	}
}

// errNotClean is returned by fsck when it finds damage.
var errNotClean = errors.New("filesystem has errors")

func fsckCommand() *command {
	return &command{
		Name:    "fsck",
		Summary: "Check the filesystem for damage",
		Run: func(_ context.Context, a *app, _ *pflag.FlagSet, _ []string) error {
			return a.withFS(func(fsys *toyfat.FileSystem) error {
				report, err := fsys.Check()
				if err != nil {
					return err
				}
				if report.Clean() {
					fmt.Fprintln(a.stdout, "clean")
					return nil
				}
				printReport(a.stdout, report)
				return errNotClean
			})
		},
	}
}

func printReport(w io.Writer, r *toyfat.Report) {
	blocks := []struct {
		label string
		list  []int
	}{
		{"cross-linked blocks", r.CrossLinked},
		{"leaked blocks", r.Leaked},
		{"dangling links", r.Dangling},
		{"invalid slots", r.Invalid},
		{"unreserved blocks", r.Unreserved},
	}
	for _, b := range blocks {
		if len(b.list) > 0 {
			fmt.Fprintf(w, "%s: %v\n", b.label, b.list)
		}
	}
	paths := []struct {
		label string
		list  []string
	}{
		{"bad records", r.BadRecords},
		{"block count mismatch", r.CountMismatch},
		{"missing sentinel", r.MissingSentinel},
	}
	for _, p := range paths {
		if len(p.list) > 0 {
			fmt.Fprintf(w, "%s: %s\n", p.label, strings.Join(p.list, " "))
		}
	}
}

func dumpCommand() *command {
	return &command{
		Name:    "dump",
		Summary: "Hex dump the image",
		Flags: func(fs *pflag.FlagSet) {
			fs.IntSliceP("block", "b", nil, "blocks to dump (default all)")
			fs.Bool("skip-zero", true, "omit blocks that are all zero")
		},
		Run: func(_ context.Context, a *app, fs *pflag.FlagSet, _ []string) error {
			img, err := disk.MapImage(a.cfg.Image)
			if err != nil {
				return err
			}
			defer img.Close()

			blocks, _ := fs.GetIntSlice("block")
			skipZero, _ := fs.GetBool("skip-zero")
			if len(blocks) == 0 {
				for b := range disk.NumBlocks {
					blocks = append(blocks, b)
				}
			} else {
				skipZero = false
			}

			zero := make([]byte, disk.BlockSize)
			for _, b := range blocks {
				data, err := img.Block(b)
				if err != nil {
					return err
				}
				if skipZero && bytes.Equal(data, zero) {
					continue
				}
				fmt.Fprintf(a.stdout, "block %d (offset %#x)\n", b, disk.Offset(b))
				if _, err := io.WriteString(a.stdout, hex.Dump(data)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func snapshotCommand() *command {
	return &command{
		Name:    "snapshot",
		Summary: "Save, restore and list archived snapshots",
		Subcommands: []*command{
			{
				Name:    "save",
				Summary: "Archive a snapshot of the image",
				Flags: func(fs *pflag.FlagSet) {
					fs.String("codec", "zstd", "payload codec: none, lz4, zstd")
					fs.Int("level", 0, "zstd level (0 for default)")
					fs.Int64("rate", 0, "bytes per second limit (0 for unlimited)")
				},
				Run: snapshotSave,
			},
			{
				Name:    "restore",
				Summary: "Restore an archived snapshot onto the image",
				Usage:   "<id>",
				Args:    1,
				Run:     snapshotRestore,
			},
			{
				Name:    "list",
				Summary: "List archived snapshots",
				Run:     snapshotList,
			},
			{
				Name:    "rm",
				Summary: "Delete an archived snapshot",
				Usage:   "<id>",
				Args:    1,
				Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
					archive, err := a.archive(ctx)
					if err != nil {
						return err
					}
					name, err := archive.Resolve(ctx, args[0])
					if err != nil {
						return err
					}
					return archive.Delete(ctx, name)
				},
			},
		},
	}
}

func snapshotSave(ctx context.Context, a *app, fs *pflag.FlagSet, _ []string) error {
	codecName, _ := fs.GetString("codec")
	codec, err := snapshot.ParseCodec(codecName)
	if err != nil {
		return err
	}
	level, _ := fs.GetInt("level")
	opts := []snapshot.Option{snapshot.WithCodec(codec), snapshot.WithLevel(level)}
	if rate, _ := fs.GetInt64("rate"); rate > 0 {
		opts = append(opts, snapshot.WithRateLimit(resource.NewController(resource.Config{IOLimitBytesPerSec: rate})))
	}

	archive, err := a.archive(ctx, opts...)
	if err != nil {
		return err
	}
	return a.withFS(func(fsys *toyfat.FileSystem) error {
		info, err := fsys.Archive(ctx, archive)
		if err != nil {
			return err
		}
		state := "saved"
		if info.Existing {
			state = "unchanged"
		}
		fmt.Fprintf(a.stdout, "%s %s (%s, %s)\n", state, info.Header.ID()[:12], info.Header.Codec, humanize.IBytes(uint64(info.Size)))
		return nil
	})
}

func snapshotRestore(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
	archive, err := a.archive(ctx)
	if err != nil {
		return err
	}
	name, err := archive.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	return a.withFS(func(fsys *toyfat.FileSystem) error {
		h, err := fsys.RestoreArchive(ctx, archive, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "restored %s\n", h.ID()[:12])
		return nil
	})
}

func snapshotList(ctx context.Context, a *app, _ *pflag.FlagSet, _ []string) error {
	archive, err := a.archive(ctx)
	if err != nil {
		return err
	}
	infos, err := archive.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Header.ID()[:12], info.Header.Codec, humanize.IBytes(uint64(info.Size)))
	}
	return tw.Flush()
}

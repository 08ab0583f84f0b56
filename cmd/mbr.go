package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/arprobe/internal/core"
	"firestige.xyz/arprobe/internal/mbr"
)

func newMBRCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mbr <image>",
		Short: "Print the partition table of a disk image's master boot record",
		Long: `Read the first 512 bytes of a disk image or block device, check the
0xAA55 boot signature and list the non-empty primary partitions.

Examples:
  arprobe mbr disk.img
  arprobe mbr /dev/sda`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: expected <image>, got %d argument(s)", core.ErrArgument, len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runMBR(args[0], cmd.OutOrStdout())
		},
	}
}

func runMBR(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	sector, err := mbr.Parse(f)
	if err != nil {
		return err
	}
	return mbr.WriteTable(w, sector)
}

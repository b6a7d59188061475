// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Command bsp360conv converts Xbox 360 BSP maps to the desktop layout.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	bsp360 "github.com/suprsokr/go-bsp360"
)

var (
	outputPath string
	inflate    bool
	verbose    bool
	check      bool
	hashes     bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <map.360.bsp>...",
	Short: "Convert console BSP files",
	Long:  `Convert one or more console BSP files. "map.360.bsp" is saved as "map.bsp", other names get a "_converted.bsp" suffix.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputPath != "" && len(args) > 1 {
			return fmt.Errorf("--output needs exactly one input file")
		}

		logger := log.New(os.Stderr, "", 0)
		opts := []bsp360.Option{bsp360.WithInflate(inflate)}
		if verbose {
			opts = append(opts, bsp360.WithLogger(logger))
		}

		failed := 0
		for _, input := range args {
			output := outputPath
			if output == "" {
				output = bsp360.OutputPath(input)
			}

			logger.Printf("Processing \"%s\"", input)
			layout, err := bsp360.ConvertFile(input, output, opts...)
			if err != nil {
				logger.Printf("Failed to convert \"%s\": %v", input, err)
				failed++
				continue
			}
			if check {
				if err := layout.Check(); err != nil {
					logger.Printf("Layout check failed for \"%s\": %v", output, err)
					failed++
					continue
				}
			}
			logger.Printf("Successfully saved \"%s\" (%d bytes)", output, layout.FileSize)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

var printCmd = &cobra.Command{
	Use:   "print <map.bsp>",
	Short: "Print the directory of a desktop BSP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}

		layout, err := bsp360.ReadLayout(f, info.Size())
		if err != nil {
			return err
		}

		fmt.Println("    Filename:", args[0])
		fmt.Println("     Version:", layout.Version)
		fmt.Println(" Map version:", layout.MapVersion)
		fmt.Println("       Lumps:")
		for i, lump := range layout.Lumps {
			if lump.Size == 0 {
				continue
			}
			fmt.Printf("     %2d %-28s %10.1f kB @ %10d ofs  v%d", i, bsp360.LumpType(i), float64(lump.Size)/1024.0, lump.Offset, lump.Version)
			if hashes {
				sum, err := layout.Sum64(f, i)
				if err != nil {
					return err
				}
				fmt.Printf("  %016x", sum)
			}
			fmt.Println()
		}

		if len(layout.GameLumps) > 0 {
			fmt.Println("  Game lumps:")
			for _, g := range layout.GameLumps {
				fmt.Printf("     %s flags 0x%04x v%-3d %10.1f kB @ %10d ofs\n", g.ID, g.Flags, g.Version, float64(g.Size)/1024.0, g.Offset)
			}
		}

		fmt.Println("")
		return nil
	},
}

var rootCmd = &cobra.Command{
	Use:           "bsp360conv",
	Short:         "bsp360conv converts Xbox 360 Source engine maps.",
	Long:          `bsp360conv rewrites console (big-endian) BSP maps into the desktop BSP layout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	convertCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (single input only)")
	convertCmd.Flags().BoolVar(&inflate, "inflate", false, "decompress LZMA lumps instead of copying them")
	convertCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every lump")
	convertCmd.Flags().BoolVar(&check, "check", false, "verify the written directory for overlaps")

	printCmd.Flags().BoolVar(&hashes, "hash", false, "print an xxHash64 digest of every lump")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(printCmd)
}

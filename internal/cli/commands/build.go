package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/gallery/internal/builder"
	"github.com/conduit-lang/gallery/internal/cli/ui"
	"github.com/conduit-lang/gallery/internal/emit"
	"github.com/conduit-lang/gallery/internal/gallery"
)

// buildReport is the --json output of the build command
type buildReport struct {
	Output   string   `json:"output"`
	Demos    []string `json:"demos"`
	Files    int      `json:"files"`
	Duration string   `json:"duration"`
}

// NewBuildCommand creates the build command
func NewBuildCommand(opts *globalOptions) *cobra.Command {
	var (
		outDir   string
		asJSON   bool
		noBucket bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write the demos module and HTML demo assets for production",
		Long: `Scan demos/ in production mode and write the build output.

The build process:
  1. Scan - discover demos, skipping those marked onlyDev
  2. Module - write the 'virtual:demos' module as demos.js
  3. Public - copy public/ into the output directory
  4. Assets - copy every file of each HTML demo except .config.json

Output goes to build.out_dir, or to an S3-compatible bucket when
build.bucket is configured in gallery.yaml.`,
		Example: `  # Build with default settings
  gallery build

  # Build to a custom output directory
  gallery build --out-dir public/gallery

  # Ignore the configured bucket and write to disk
  gallery build --local

  # Print a machine-readable report
  gallery build --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			startTime := time.Now()

			p, err := opts.load()
			if err != nil {
				return err
			}
			defer p.logger.Sync()

			options := builder.Options{Root: p.root, OutDir: p.config.Build.OutDir}
			if outDir != "" {
				options.OutDir = outDir
			}
			if bucket := p.config.Build.Bucket; bucket.Enabled() && !noBucket && outDir == "" {
				options.Bucket = &emit.BucketConfig{
					Endpoint:  bucket.Endpoint,
					Region:    bucket.Region,
					Bucket:    bucket.Name,
					Prefix:    bucket.Prefix,
					AccessKey: bucket.AccessKey,
					SecretKey: bucket.SecretKey,
					UseSSL:    bucket.UseSSL,
				}
			}

			plugin := gallery.New(gallery.WithLogger(p.logger.Named("gallery")))
			b, err := builder.New(options, plugin, p.logger.Named("builder"))
			if err != nil {
				return err
			}

			result, err := b.Build(cmd.Context())
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}

			duration := time.Since(startTime)
			out := cmd.OutOrStdout()

			if asJSON {
				report := buildReport{
					Output:   result.Output,
					Demos:    make([]string, 0, len(result.Configs)),
					Files:    result.Files,
					Duration: duration.String(),
				}
				for _, config := range result.Configs {
					report.Demos = append(report.Demos, config.ID)
				}
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(report)
			}

			color.New(color.FgGreen, color.Bold).Fprintln(out, "Build successful")
			summary := ui.NewSummary(out, opts.noColor)
			summary.Add("Demos", len(result.Configs))
			summary.Add("Assets", result.Files)
			summary.Add("Output", result.Output)
			summary.Add("Time", duration.Round(time.Millisecond))
			summary.Render()

			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Output directory (default: build.out_dir)")
	cmd.Flags().BoolVar(&noBucket, "local", false, "Write to the output directory even when a bucket is configured")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the build report as JSON")

	return cmd
}

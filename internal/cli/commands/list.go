package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/gallery/internal/cli/ui"
	"github.com/conduit-lang/gallery/internal/demos"
	"github.com/conduit-lang/gallery/internal/gallery"
	"github.com/conduit-lang/gallery/internal/virtualmodule"
)

// listedDemo is one --json entry of the list command
type listedDemo struct {
	ID          string         `json:"id"`
	Type        demos.Kind     `json:"type"`
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	OnlyDev     bool           `json:"onlyDev,omitempty"`
	Entry       string         `json:"entry"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// NewListCommand creates the list command
func NewListCommand(opts *globalOptions) *cobra.Command {
	var (
		production bool
		asJSON     bool
		showModule bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the demos discovered under demos/",
		Long: `Scan demos/ and print what the gallery would expose.

With --production, demos marked onlyDev are left out and HTML entries are
reported relative to demos/, as in a build.`,
		Example: `  gallery list
  gallery list --production --json
  gallery list --module`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load()
			if err != nil {
				return err
			}
			defer p.logger.Sync()

			command := gallery.CommandServe
			if production {
				command = gallery.CommandBuild
			}

			plugin := gallery.New(gallery.WithLogger(p.logger.Named("gallery")))
			defer plugin.Close()
			if err := plugin.ConfigResolved(gallery.ResolvedConfig{Root: p.root, Command: command}); err != nil {
				return err
			}
			if err := plugin.BuildStart(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if showModule {
				id, _ := plugin.ResolveID(virtualmodule.PublicID)
				module, _ := plugin.Load(id)
				fmt.Fprint(out, module)
				return nil
			}

			configs := plugin.Configs()

			if asJSON {
				listed := make([]listedDemo, 0, len(configs))
				for _, c := range configs {
					listed = append(listed, listedDemo{
						ID:          c.ID,
						Type:        c.Type,
						Title:       c.Title,
						Description: c.Description,
						OnlyDev:     c.OnlyDev,
						Entry:       entryOf(c),
						Extra:       c.Extra,
					})
				}
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(listed)
			}

			if len(configs) == 0 {
				color.New(color.FgYellow).Fprintf(out, "No demos found in %s\n", plugin.DemosDir())
				return nil
			}

			table := ui.NewTable(out, opts.noColor, "ID", "TYPE", "TITLE", "ENTRY")
			for _, c := range configs {
				title := ""
				if c.Title != nil {
					title = *c.Title
				}
				table.AddRow(c.ID, string(c.Type), title, entryOf(c))
			}
			table.Render()

			return nil
		},
	}

	cmd.Flags().BoolVar(&production, "production", false, "Scan as a production build")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print demos as JSON")
	cmd.Flags().BoolVar(&showModule, "module", false, "Print the generated module instead")

	return cmd
}

func entryOf(c demos.Config) string {
	if c.Type == demos.KindComponent {
		return c.Component
	}
	return c.HTML
}

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/gallery/internal/devserver"
	"github.com/conduit-lang/gallery/internal/gallery"
)

// NewServeCommand creates the serve command
func NewServeCommand(opts *globalOptions) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"dev", "watch"},
		Short:   "Start the development server with live demo updates",
		Long: `Start the development server for the project.

The server scans demos/ once at startup and then watches it:
  • Adding, removing or renaming a demo, or editing a .config.json,
    regenerates 'virtual:demos' and notifies connected browsers
  • Editing a file inside an HTML demo tells the gallery to reload
    that demo

Examples:
  # Start with the configured host and port (default localhost:5173)
  gallery serve

  # Use a custom port
  gallery serve --port 8080

  # Enable verbose logging
  gallery serve --verbose
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load()
			if err != nil {
				return err
			}
			defer p.logger.Sync()

			if cmd.Flags().Changed("port") {
				p.config.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				p.config.Server.Host = host
			}

			plugin := gallery.New(gallery.WithLogger(p.logger.Named("gallery")))
			server, err := devserver.New(devserver.Config{
				Root:           p.root,
				Host:           p.config.Server.Host,
				Port:           p.config.Server.Port,
				IgnorePatterns: p.config.Watch.Ignore,
			}, plugin, p.logger.Named("devserver"))
			if err != nil {
				return fmt.Errorf("failed to create dev server: %w", err)
			}

			if err := server.Start(); err != nil {
				return fmt.Errorf("failed to start dev server: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			banner := color.New(color.FgCyan, color.Bold)
			info := color.New(color.FgWhite)

			fmt.Fprintln(out)
			banner.Fprintln(out, "Gallery Development Server")
			info.Fprintf(out, "   Local:  http://%s\n", server.Addr())
			info.Fprintf(out, "   Demos:  %s (%d found)\n", plugin.DemosDir(), len(plugin.Configs()))
			fmt.Fprintln(out)
			color.New(color.FgYellow).Fprintln(out, "Press Ctrl+C to stop")
			fmt.Fprintln(out)

			<-ctx.Done()

			fmt.Fprintln(out, "\nShutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				return fmt.Errorf("error stopping dev server: %w", err)
			}

			color.New(color.FgGreen).Fprintln(out, "Goodbye!")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 5173, "Development server port")
	cmd.Flags().StringVar(&host, "host", "localhost", "Development server host")

	return cmd
}

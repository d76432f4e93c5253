// Package serve provides the "docconv serve" command.
package serve

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/klytics/docconv/internal/config"
	"github.com/klytics/docconv/internal/delivery"
	"github.com/klytics/docconv/internal/formats/convert"
	"github.com/klytics/docconv/internal/server"
)

// NewCommand creates the "serve" command.
func NewCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Long: `Start an HTTP server that accepts uploads and returns converted files.

  GET    /formats          supported conversions and limits
  POST   /convert          multipart form: file, to, sheet (optional)
  GET    /downloads/{id}   fetch a result
  DELETE /downloads/{id}   release a result

Results are held in memory until released or until server.download_ttl
expires.

Example:
  docconv serve --addr :9000
  curl -F file=@report.docx -F to=pdf localhost:9000/convert`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			logger := slog.Default()
			cc, err := cfg.ConverterConfig(logger)
			if err != nil {
				return err
			}

			srv := server.New(server.Config{
				Converter: convert.New(cc),
				Store:     delivery.NewStore(cfg.Server.DownloadTTL, cfg.Server.MaxDownloads),
				Audit:     cfg.AuditLogger(),
				Logger:    logger,
			})

			fmt.Fprintf(cmd.OutOrStdout(), "Serving conversions on %s (Ctrl+C to stop)\n", addr)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	return cmd
}

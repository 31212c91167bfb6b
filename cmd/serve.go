package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bugVanisher/srs-session/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the RTMP session server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		srv, err := server.New(ctx, server.Config{
			Addr:       serveArgs.addr,
			ConfigPath: serveArgs.configPath,
			LocalIP:    serveArgs.localIP,
			ServerID:   serveArgs.serverID,
		})
		if err != nil {
			return err
		}
		// The config file's logging section is only readable now that the
		// store is loaded; flags still win inside applyLogging.
		applyLogging(srv.Store().Logging())

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe(ctx)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			cancel()
			_ = srv.Stop()
			time.Sleep(gracePeriod)
			return nil
		}
	},
}

var serveArgs struct {
	addr       string
	configPath string
	localIP    string
	serverID   string
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveArgs.addr, "listen", "p", ":1935", "address to listen on")
	serveCmd.Flags().StringVarP(&serveArgs.configPath, "config", "c", "./vhosts.yml", "vhost config file path")
	serveCmd.Flags().StringVar(&serveArgs.localIP, "local-ip", "127.0.0.1", "IP advertised in connect_app responses and edge identity args")
	serveCmd.Flags().StringVar(&serveArgs.serverID, "server-id", "srs-session-0", "server id advertised to edge origins")
}

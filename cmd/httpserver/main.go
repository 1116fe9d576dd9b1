package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/credential-registry/cmd/flags"
	"github.com/ruteri/credential-registry/common"
	"github.com/ruteri/credential-registry/httpserver"
	"github.com/ruteri/credential-registry/metrics"
	"github.com/ruteri/credential-registry/registry"
)

var listenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"LISTEN_ADDR"},
}

func main() {
	app := &cli.App{
		Name:  "credential-registry-server",
		Usage: "Serve student profiles, document listings with signed URLs, and endorsement state",
		Flags: append([]cli.Flag{
			flags.RpcAddrFlag,
			flags.ContractAddrFlag,
			listenAddrFlag,
			flags.StorageFlag,
			flags.URLSecretFlag,
			flags.PublicURLFlag,
			flags.URLTTLFlag,
			flags.MaxUploadBytesFlag,
			flags.JournalDirFlag,
			flags.AdminTokenFlag,
			flags.LogServiceFlagFn("credential-registry"),
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			ledgerClient, ethClient, err := flags.DialLedger(cCtx, logger)
			if err != nil {
				logger.Error("Failed to connect to ledger", "err", err)
				return err
			}
			defer ethClient.Close()

			store, signer, err := flags.OpenContentStore(cCtx, logger)
			if err != nil {
				logger.Error("Failed to configure storage", "err", err)
				return err
			}

			orphans, err := flags.OpenJournal(cCtx, logger)
			if err != nil {
				logger.Error("Failed to open orphan journal", "err", err)
				return err
			}
			defer orphans.Close()

			metricsSrv, err := metrics.New(common.PackageName, cCtx.String(flags.MetricsAddrFlag.Name))
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}

			reg := registry.NewRegistry(ledgerClient, store, orphans, metricsSrv.Recorder(), registry.Config{
				URLTTL: cCtx.Duration(flags.URLTTLFlag.Name),
			}, logger)

			// A nil *urlsign.Signer must not become a non-nil interface value.
			var verifier httpserver.ContentVerifier
			if signer != nil {
				verifier = signer
			}

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(listenAddrFlag.Name))
			server, err := httpserver.New(cfg, httpserver.NewHandler(reg, verifier, logger), metricsSrv)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server", "contract", ledgerClient.Address().Hex())
			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit
			logger.Info("Shutdown signal received")

			server.Drain()
			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

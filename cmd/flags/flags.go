package flags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/credential-registry/api"
	"github.com/ruteri/credential-registry/common"
	"github.com/ruteri/credential-registry/interfaces"
	"github.com/ruteri/credential-registry/journal"
	"github.com/ruteri/credential-registry/ledger"
	"github.com/ruteri/credential-registry/storage"
	"github.com/ruteri/credential-registry/urlsign"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		AdminToken:               cCtx.String(AdminTokenFlag.Name),
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// DialLedger connects to the RPC endpoint and binds the credential contract.
func DialLedger(cCtx *cli.Context, logger *slog.Logger) (*ledger.EthLedgerClient, *ethclient.Client, error) {
	rpcAddress := cCtx.String(RpcAddrFlag.Name)
	contractHex := cCtx.String(ContractAddrFlag.Name)
	if !ethcommon.IsHexAddress(contractHex) {
		return nil, nil, fmt.Errorf("invalid contract address %q", contractHex)
	}

	logger.Info("Connecting to Ethereum RPC", "address", rpcAddress)
	ethClient, err := ethclient.Dial(rpcAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial RPC: %w", err)
	}

	client, err := ledger.NewEthLedgerClient(ethClient, ethClient, ethcommon.HexToAddress(contractHex), logger)
	if err != nil {
		ethClient.Close()
		return nil, nil, err
	}
	return client, ethClient, nil
}

// OpenContentStore builds the storage backends named by --storage and the URL
// signer configured by --url-secret and --public-url.
func OpenContentStore(cCtx *cli.Context, logger *slog.Logger) (*storage.ContentStore, *urlsign.Signer, error) {
	uris := cCtx.StringSlice(StorageFlag.Name)
	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		loc, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, nil, err
		}
		locations = append(locations, loc)
	}

	backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
	if err != nil {
		return nil, nil, err
	}

	var signer *urlsign.Signer
	if secret := cCtx.String(URLSecretFlag.Name); secret != "" {
		signer, err = urlsign.NewSigner([]byte(secret), cCtx.String(PublicURLFlag.Name))
		if err != nil {
			return nil, nil, err
		}
	} else {
		logger.Warn("No URL signing secret configured, documents on backends without native presigning will be listed without URLs", "backend", backend.Name())
	}

	limits := storage.DefaultLimits()
	limits.MaxBytes = cCtx.Int64(MaxUploadBytesFlag.Name)

	// A nil *urlsign.Signer must not become a non-nil interface value.
	var urlSigner storage.URLSigner
	if signer != nil {
		urlSigner = signer
	}
	return storage.NewContentStore(backend, urlSigner, limits, logger), signer, nil
}

// OpenJournal opens the badger orphan journal at --journal-dir, in memory when unset.
func OpenJournal(cCtx *cli.Context, logger *slog.Logger) (*journal.BadgerJournal, error) {
	dir := cCtx.String(JournalDirFlag.Name)
	if dir == "" {
		logger.Warn("No journal directory configured, orphan records will not survive restarts")
	}
	return journal.OpenBadgerJournal(dir, logger)
}

// LoadSession unlocks the keystore file with the passphrase and returns a
// session signing for the ledger's chain.
func LoadSession(cCtx *cli.Context, ethClient *ethclient.Client) (interfaces.Session, error) {
	path := cCtx.String(KeystoreFlag.Name)
	if path == "" {
		return interfaces.Session{}, errors.New("--keystore is required for ledger writes")
	}
	f, err := os.Open(path)
	if err != nil {
		return interfaces.Session{}, err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(cCtx.Context, 10*time.Second)
	defer cancel()
	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		return interfaces.Session{}, fmt.Errorf("could not read chain id: %w", err)
	}

	opts, err := bind.NewTransactorWithChainID(f, cCtx.String(PassphraseFlag.Name), chainID)
	if err != nil {
		return interfaces.Session{}, fmt.Errorf("could not unlock keystore: %w", err)
	}
	return interfaces.Session{Address: opts.From, Signer: opts.Signer}, nil
}

var RpcAddrFlag = &cli.StringFlag{
	Name:    "rpc-addr",
	Value:   "http://127.0.0.1:8545",
	Usage:   "address to connect to RPC",
	EnvVars: []string{"RPC_ADDR"},
}

var ContractAddrFlag = &cli.StringFlag{
	Name:     "contract",
	Required: true,
	Usage:    "credential registry contract address, 0x-prefixed hex",
	EnvVars:  []string{"CONTRACT_ADDR"},
}

var StorageFlag = &cli.StringSliceFlag{
	Name:    "storage",
	Value:   cli.NewStringSlice("file:///var/lib/credential-registry/content"),
	Usage:   "storage backend location URI (file://, s3://, minio://, ipfs://), repeatable",
	EnvVars: []string{"STORAGE_URIS"},
}

var URLSecretFlag = &cli.StringFlag{
	Name:    "url-secret",
	Usage:   "secret for signing document URLs on backends without native presigning",
	EnvVars: []string{"URL_SECRET"},
}

var PublicURLFlag = &cli.StringFlag{
	Name:    "public-url",
	Value:   "http://127.0.0.1:8080",
	Usage:   "externally reachable base URL of this server, used in signed document URLs",
	EnvVars: []string{"PUBLIC_URL"},
}

var URLTTLFlag = &cli.DurationFlag{
	Name:    "url-ttl",
	Value:   storage.DefaultSignedURLTTL,
	Usage:   "lifetime of signed document URLs",
	EnvVars: []string{"URL_TTL"},
}

var MaxUploadBytesFlag = &cli.Int64Flag{
	Name:    "max-upload-bytes",
	Value:   storage.DefaultMaxBytes,
	Usage:   "document size ceiling",
	EnvVars: []string{"MAX_UPLOAD_BYTES"},
}

var JournalDirFlag = &cli.StringFlag{
	Name:    "journal-dir",
	Usage:   "directory of the orphaned content journal, in-memory if empty",
	EnvVars: []string{"JOURNAL_DIR"},
}

var KeystoreFlag = &cli.StringFlag{
	Name:    "keystore",
	Usage:   "encrypted keystore file of the signing wallet",
	EnvVars: []string{"KEYSTORE"},
}

var PassphraseFlag = &cli.StringFlag{
	Name:    "passphrase",
	Usage:   "keystore passphrase",
	EnvVars: []string{"KEYSTORE_PASSPHRASE"},
}

var AdminTokenFlag = &cli.StringFlag{
	Name:    "admin-token",
	Usage:   "bearer token for the admin API, which is disabled if empty",
	EnvVars: []string{"ADMIN_TOKEN"},
}

var ServerAddrFlag = &cli.StringFlag{
	Name:    "server",
	Value:   "http://127.0.0.1:8080",
	Usage:   "registry server base URL for read commands",
	EnvVars: []string{"REGISTRY_SERVER"},
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

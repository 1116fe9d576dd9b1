package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/credential-registry/api/clients"
	"github.com/ruteri/credential-registry/cmd/flags"
	"github.com/ruteri/credential-registry/identity"
	"github.com/ruteri/credential-registry/interfaces"
	"github.com/ruteri/credential-registry/registry"
)

var (
	flagName = &cli.StringFlag{
		Name:     "name",
		Required: true,
		Usage:    "student display name",
	}
	flagUniqueID = &cli.StringFlag{
		Name:  "unique-id",
		Usage: "student unique id, a random one is generated when empty",
	}
	flagFile = &cli.PathFlag{
		Name:     "file",
		Required: true,
		Usage:    "document to upload (PDF, JPEG or PNG)",
	}
	flagContentType = &cli.StringFlag{
		Name:  "content-type",
		Usage: "document media type, detected from the file when empty",
	}
	flagDocType = &cli.StringFlag{
		Name:     "doc-type",
		Required: true,
		Usage:    "document classification, e.g. Transcript",
	}
	flagWeightage = &cli.IntFlag{
		Name:     "weightage",
		Required: true,
		Usage:    "relative importance of the document, 1 to 10",
	}
	flagStudent = &cli.StringFlag{
		Name:     "student",
		Required: true,
		Usage:    "student wallet address",
	}
	flagIndex = &cli.Uint64Flag{
		Name:  "index",
		Usage: "document index within the student's documents",
	}
	flagEndorser = &cli.StringFlag{
		Name:     "endorser",
		Required: true,
		Usage:    "endorser wallet address to authorize",
	}
	flagQuorum = &cli.IntFlag{
		Name:  "quorum",
		Usage: "endorsements required for a document to count as fully endorsed, 0 for none",
	}
	flagCertID = &cli.StringFlag{
		Name:     "unique-id",
		Required: true,
		Usage:    "student unique id",
	}
)

var ledgerFlags = []cli.Flag{
	flags.RpcAddrFlag,
	flags.ContractAddrFlag,
	flags.KeystoreFlag,
	flags.PassphraseFlag,
}

// withRegistry runs fn against a registry bound to the ledger and storage
// configured by flags, signing with the keystore wallet.
func withRegistry(cCtx *cli.Context, fn func(reg *registry.Registry, session interfaces.Session) error) error {
	logger := flags.SetupLogger(cCtx)

	ledgerClient, ethClient, err := flags.DialLedger(cCtx, logger)
	if err != nil {
		return err
	}
	defer ethClient.Close()

	session, err := flags.LoadSession(cCtx, ethClient)
	if err != nil {
		return err
	}

	var store registry.ContentStore
	if len(cCtx.StringSlice(flags.StorageFlag.Name)) > 0 {
		contentStore, _, err := flags.OpenContentStore(cCtx, logger)
		if err != nil {
			return err
		}
		store = contentStore
	}

	var orphans interfaces.OrphanJournal
	if cCtx.String(flags.JournalDirFlag.Name) != "" {
		j, err := flags.OpenJournal(cCtx, logger)
		if err != nil {
			return err
		}
		defer j.Close()
		orphans = j
	}

	reg := registry.NewRegistry(ledgerClient, store, orphans, nil, registry.Config{}, logger)
	logger.Debug("Using wallet", "address", session.Address.Hex())
	return describe(fn(reg, session))
}

func readClient(cCtx *cli.Context) *clients.RegistryClient {
	return &clients.RegistryClient{
		ServerAddr: cCtx.String(flags.ServerAddrFlag.Name),
		AdminToken: cCtx.String(flags.AdminTokenFlag.Name),
	}
}

// describe prefixes err with its error kind.
func describe(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", interfaces.KindOf(err), err)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: invalid address %q", interfaces.ErrValidation, raw)
	}
	return common.HexToAddress(raw), nil
}

func main() {
	app := &cli.App{
		Name:  "registry-client",
		Usage: "Register students, upload and endorse credentials, and query the credential registry",
		Flags: append([]cli.Flag{flags.LogServiceFlagFn("registry-client")}, flags.LogFlags...),
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "register the keystore wallet as a student",
				Flags: append([]cli.Flag{flagName, flagUniqueID}, ledgerFlags...),
				Action: func(cCtx *cli.Context) error {
					return withRegistry(cCtx, func(reg *registry.Registry, session interfaces.Session) error {
						uniqueID := cCtx.String(flagUniqueID.Name)
						if uniqueID == "" {
							uniqueID = identity.NewUniqueID()
						}
						student, err := reg.Register(cCtx.Context, session, cCtx.String(flagName.Name), uniqueID)
						if err != nil {
							return err
						}
						return printJSON(student)
					})
				},
			},
			{
				Name:  "upload",
				Usage: "store a document and record it for the keystore wallet",
				Flags: append([]cli.Flag{
					flagFile,
					flagContentType,
					flagDocType,
					flagWeightage,
					flags.StorageFlag,
					flags.MaxUploadBytesFlag,
					flags.JournalDirFlag,
				}, ledgerFlags...),
				Action: func(cCtx *cli.Context) error {
					data, err := os.ReadFile(cCtx.Path(flagFile.Name))
					if err != nil {
						return err
					}
					contentType := cCtx.String(flagContentType.Name)
					if contentType == "" {
						contentType = http.DetectContentType(data)
					}

					return withRegistry(cCtx, func(reg *registry.Registry, session interfaces.Session) error {
						doc, err := reg.Upload(cCtx.Context, session, data, contentType, cCtx.String(flagDocType.Name), cCtx.Int(flagWeightage.Name))
						if err != nil {
							return err
						}
						return printJSON(doc)
					})
				},
			},
			{
				Name:  "endorse",
				Usage: "endorse a student's document with the keystore wallet",
				Flags: append([]cli.Flag{flagStudent, flagIndex}, ledgerFlags...),
				Action: func(cCtx *cli.Context) error {
					student, err := parseAddress(cCtx.String(flagStudent.Name))
					if err != nil {
						return describe(err)
					}
					return withRegistry(cCtx, func(reg *registry.Registry, session interfaces.Session) error {
						endorsers, err := reg.Endorse(cCtx.Context, session, student, cCtx.Uint64(flagIndex.Name))
						if err != nil {
							return err
						}
						return printJSON(endorsers)
					})
				},
			},
			{
				Name:  "add-endorser",
				Usage: "authorize an endorser, the keystore wallet must be the contract authority",
				Flags: append([]cli.Flag{flagEndorser}, ledgerFlags...),
				Action: func(cCtx *cli.Context) error {
					endorser, err := parseAddress(cCtx.String(flagEndorser.Name))
					if err != nil {
						return describe(err)
					}
					return withRegistry(cCtx, func(reg *registry.Registry, session interfaces.Session) error {
						return reg.AddEndorser(cCtx.Context, session, endorser)
					})
				},
			},
			{
				Name:  "profile",
				Usage: "show a student's profile",
				Flags: []cli.Flag{flags.ServerAddrFlag, flagStudent},
				Action: func(cCtx *cli.Context) error {
					student, err := parseAddress(cCtx.String(flagStudent.Name))
					if err != nil {
						return describe(err)
					}
					profile, err := readClient(cCtx).GetProfile(cCtx.Context, student)
					if err != nil {
						return describe(err)
					}
					return printJSON(profile)
				},
			},
			{
				Name:  "certs",
				Usage: "list a student's documents with signed URLs",
				Flags: []cli.Flag{flags.ServerAddrFlag, flagCertID},
				Action: func(cCtx *cli.Context) error {
					docs, err := readClient(cCtx).GetDocuments(cCtx.Context, cCtx.String(flagCertID.Name))
					if err != nil {
						return describe(err)
					}
					return printJSON(docs)
				},
			},
			{
				Name:  "endorsements",
				Usage: "show a document's endorsers and endorsement status",
				Flags: []cli.Flag{flags.ServerAddrFlag, flagStudent, flagIndex, flagQuorum},
				Action: func(cCtx *cli.Context) error {
					student, err := parseAddress(cCtx.String(flagStudent.Name))
					if err != nil {
						return describe(err)
					}
					state, err := readClient(cCtx).GetEndorsements(cCtx.Context, student, cCtx.Uint64(flagIndex.Name), cCtx.Int(flagQuorum.Name))
					if err != nil {
						return describe(err)
					}
					return printJSON(state)
				},
			},
			{
				Name:  "orphans",
				Usage: "list stored documents whose ledger write failed",
				Flags: []cli.Flag{flags.ServerAddrFlag, flags.AdminTokenFlag},
				Action: func(cCtx *cli.Context) error {
					orphans, err := readClient(cCtx).ListOrphans(cCtx.Context)
					if err != nil {
						return describe(err)
					}
					return printJSON(orphans)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

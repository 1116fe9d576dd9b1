package clients

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/credential-registry/api"
	"github.com/ruteri/credential-registry/endorsement"
	"github.com/ruteri/credential-registry/httpserver"
	"github.com/ruteri/credential-registry/interfaces"
	"github.com/ruteri/credential-registry/journal"
	"github.com/ruteri/credential-registry/ledger"
	"github.com/ruteri/credential-registry/registry"
	"github.com/ruteri/credential-registry/storage"
	"github.com/ruteri/credential-registry/urlsign"
)

var (
	authority = common.HexToAddress("0xA0")
	student   = common.HexToAddress("0xAAA")
	end1      = common.HexToAddress("0xE1D1")
)

func startServer(t *testing.T) (*RegistryClient, *registry.Registry) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var handler http.Handler
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	signer, err := urlsign.NewSigner([]byte("client test secret"), ts.URL)
	require.NoError(t, err)

	store := storage.NewContentStore(storage.NewMemoryBackend(), signer, storage.DefaultLimits(), logger)
	reg := registry.NewRegistry(ledger.NewMockLedgerClient(authority), store, journal.NewMemoryJournal(), nil, registry.Config{}, logger)

	srv, err := httpserver.New(&api.HTTPServerConfig{Log: logger, AdminToken: "orphan reader"}, httpserver.NewHandler(reg, signer, logger), nil)
	require.NoError(t, err)
	handler = srv.Handler()

	return &RegistryClient{ServerAddr: ts.URL, HTTPClient: ts.Client(), AdminToken: "orphan reader"}, reg
}

func TestRegistryClient_ReadPath(t *testing.T) {
	client, reg := startServer(t)
	ctx := context.Background()
	data := []byte("%PDF-1.5 degree certificate")

	_, err := reg.Register(ctx, ledger.MockSession(student), "Ada", "ada-1")
	require.NoError(t, err)
	_, err = reg.Upload(ctx, ledger.MockSession(student), data, "application/pdf", "Degree", 9)
	require.NoError(t, err)
	require.NoError(t, reg.AddEndorser(ctx, ledger.MockSession(authority), end1))
	_, err = reg.Endorse(ctx, ledger.MockSession(end1), student, 0)
	require.NoError(t, err)

	profile, err := client.GetProfile(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.Student.Name)
	require.Len(t, profile.Documents, 1)
	assert.Equal(t, uint8(9), profile.Documents[0].Weightage)

	docs, err := client.GetDocuments(ctx, "ada-1")
	require.NoError(t, err)
	require.Len(t, docs.Documents, 1)

	content, err := client.FetchContent(ctx, docs.Documents[0].URL)
	require.NoError(t, err)
	assert.Equal(t, data, content)

	state, err := client.GetEndorsements(ctx, student, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, endorsement.PartiallyEndorsed, state.Status)
	assert.Equal(t, []common.Address{end1}, state.Endorsers)

	orphans, err := client.ListOrphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans.Orphans)
}

func TestRegistryClient_ListOrphansWrongToken(t *testing.T) {
	client, _ := startServer(t)
	client.AdminToken = "guess"

	_, err := client.ListOrphans(context.Background())
	require.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestRegistryClient_Errors(t *testing.T) {
	client, _ := startServer(t)
	ctx := context.Background()

	_, err := client.GetProfile(ctx, student)
	require.ErrorIs(t, err, interfaces.ErrNotRegistered)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, interfaces.KindNotRegistered, apiErr.Kind)

	_, err = client.GetDocuments(ctx, "unknown")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = client.GetEndorsements(ctx, student, 0, 0)
	assert.ErrorIs(t, err, interfaces.ErrInvalidIndex)
}

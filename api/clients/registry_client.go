package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/credential-registry/api"
	"github.com/ruteri/credential-registry/endorsement"
	"github.com/ruteri/credential-registry/interfaces"
	"github.com/ruteri/credential-registry/registry"
)

// APIError is a non-2xx response from the registry API. It matches the
// sentinel error of its kind with errors.Is.
type APIError struct {
	StatusCode int
	Kind       interfaces.ErrorKind
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("registry api returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("registry api returned %d %s: %s", e.StatusCode, e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return interfaces.ErrorForKind(e.Kind)
}

// RegistryClient reads from a registry HTTP server.
type RegistryClient struct {
	// ServerAddr is the base URL of the registry server.
	ServerAddr string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// AdminToken authenticates admin requests.
	AdminToken string
}

func (c *RegistryClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *RegistryClient) route(pattern string, params map[string]string) string {
	path := pattern
	for k, v := range params {
		path = strings.Replace(path, "{"+k+"}", url.PathEscape(v), 1)
	}
	return strings.TrimSuffix(c.ServerAddr, "/") + path
}

func (c *RegistryClient) get(ctx context.Context, u string, admin bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if admin && c.AdminToken != "" {
		req.Header.Set("Authorization", api.BearerPrefix+c.AdminToken)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	var parsed api.ErrorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{StatusCode: resp.StatusCode, Kind: parsed.Error, Message: parsed.Message}
}

func (c *RegistryClient) getJSON(ctx context.Context, u string, admin bool, out interface{}) error {
	resp, err := c.get(ctx, u, admin)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}

// GetProfile returns the student profile at addr.
func (c *RegistryClient) GetProfile(ctx context.Context, addr common.Address) (*registry.Profile, error) {
	var profile registry.Profile
	if err := c.getJSON(ctx, c.route(api.StudentProfilePath, map[string]string{"address": addr.Hex()}), false, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetDocuments returns the documents of the student registered under uniqueID.
func (c *RegistryClient) GetDocuments(ctx context.Context, uniqueID string) (*api.DocumentsResponse, error) {
	var docs api.DocumentsResponse
	if err := c.getJSON(ctx, c.route(api.CertificatesPath, map[string]string{"unique_id": uniqueID}), false, &docs); err != nil {
		return nil, err
	}
	return &docs, nil
}

// GetEndorsements returns the endorsement state of one document against quorum.
func (c *RegistryClient) GetEndorsements(ctx context.Context, student common.Address, docIndex uint64, quorum int) (*endorsement.State, error) {
	u := c.route(api.EndorsementsPath, map[string]string{
		"address": student.Hex(),
		"index":   strconv.FormatUint(docIndex, 10),
	})
	if quorum > 0 {
		u += "?" + url.Values{api.QuorumParam: {strconv.Itoa(quorum)}}.Encode()
	}

	var state endorsement.State
	if err := c.getJSON(ctx, u, false, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ListOrphans returns stored content without a ledger record.
func (c *RegistryClient) ListOrphans(ctx context.Context) (*api.OrphansResponse, error) {
	var orphans api.OrphansResponse
	if err := c.getJSON(ctx, c.route(api.OrphansPath, nil), true, &orphans); err != nil {
		return nil, err
	}
	return &orphans, nil
}

// FetchContent downloads a document from a signed URL.
func (c *RegistryClient) FetchContent(ctx context.Context, signedURL string) ([]byte, error) {
	resp, err := c.get(ctx, signedURL, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

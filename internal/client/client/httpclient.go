package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/geocapsule/internal/api"
	"github.com/dmitrijs2005/geocapsule/internal/client/models"
	"github.com/dmitrijs2005/geocapsule/internal/common"
)

// HTTPClient implements Client over the server's JSON API.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client
}

// NewHTTPClient returns a Client talking to the given base URL, e.g.
// "http://127.0.0.1:8080".
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Close() error {
	c.httpc.CloseIdleConnections()
	return nil
}

// do sends one JSON request and decodes the response into out (if non-nil).
// Transport failures and error statuses are mapped onto the package
// sentinels; the raw status code is returned for callers that distinguish
// outcomes like 404 on delete.
func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return resp.StatusCode, nil
	}

	var apiErr api.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return resp.StatusCode, fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error)
	case http.StatusConflict:
		return resp.StatusCode, fmt.Errorf("%w: %s", ErrConflict, apiErr.Error)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return resp.StatusCode, &ValidationError{Messages: apiErr.Messages}
	case http.StatusNotFound:
		return resp.StatusCode, common.ErrNotFound
	default:
		return resp.StatusCode, fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status)
	}
}

func (c *HTTPClient) Register(ctx context.Context, account, password string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/register", "",
		&api.RegisterRequest{Login: account, Password: password}, nil)
	return err
}

func (c *HTTPClient) Login(ctx context.Context, account, password string) (string, error) {
	var resp api.LoginResponse
	_, err := c.do(ctx, http.MethodPost, "/api/auth/login", "",
		&api.LoginRequest{Login: account, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func (c *HTTPClient) GetCollectionTag(ctx context.Context, token, collection string) (string, error) {
	var resp api.CtagResponse
	path := "/api/collections/" + url.PathEscape(collection) + "/ctag"
	if _, err := c.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return "", err
	}
	return resp.Ctag, nil
}

func (c *HTTPClient) CreateOrUpdateOwned(ctx context.Context, token string, syncID int64, fields models.CapsuleFields, etag string) (*models.CanonicalRecord, error) {
	req := &api.UpsertCapsuleRequest{
		SyncID: syncID, Name: fields.Name, Lat: fields.Lat, Lng: fields.Lng, Etag: etag,
	}
	var resp api.CapsuleRecord
	if _, err := c.do(ctx, http.MethodPut, "/api/capsules", token, req, &resp); err != nil {
		return nil, err
	}
	return &models.CanonicalRecord{
		SyncID: resp.SyncID, Etag: resp.Etag, Name: resp.Name, Lat: resp.Lat, Lng: resp.Lng,
	}, nil
}

func (c *HTTPClient) DeleteOwned(ctx context.Context, token string, syncID int64) (models.DeleteResult, error) {
	code, err := c.do(ctx, http.MethodDelete, "/api/capsules/"+strconv.FormatInt(syncID, 10), token, nil, nil)
	if code == http.StatusNotFound {
		return models.DeleteResultNotFound, nil
	}
	if err != nil {
		return 0, err
	}
	return models.DeleteResultDeleted, nil
}

func (c *HTTPClient) ListCollection(ctx context.Context, token, collection string) ([]*models.CanonicalRecord, error) {
	var resp api.ListCollectionResponse
	path := "/api/collections/" + url.PathEscape(collection)
	if _, err := c.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, err
	}
	result := make([]*models.CanonicalRecord, 0, len(resp.Records))
	for _, r := range resp.Records {
		result = append(result, &models.CanonicalRecord{
			SyncID: r.SyncID, Etag: r.Etag, Name: r.Name, Lat: r.Lat, Lng: r.Lng,
		})
	}
	return result, nil
}

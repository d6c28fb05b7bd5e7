package fga

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/kart-io/logger"

	fgaopts "github.com/kart-io/rag-agent/pkg/options/fga"
	"github.com/kart-io/rag-agent/pkg/utils/httpclient"
)

// Client talks to the authorization engine. Store and model ids may be
// empty: in that unconfigured state Check fails open and ListObjects
// returns nothing, so the demo stays usable without a running engine.
type Client struct {
	apiURL string
	http   *httpclient.Client

	mu      sync.RWMutex
	storeID string
	modelID string
}

// NewClient creates a client from the given options.
func NewClient(opts *fgaopts.Options) *Client {
	return &Client{
		apiURL:  opts.APIURL,
		http:    httpclient.NewClient(opts.Timeout, opts.MaxRetries),
		storeID: opts.StoreID,
		modelID: opts.AuthorizationModelID,
	}
}

// Configured reports whether both store and model ids are set. Unconfigured
// clients deliberately answer Check with true and ListObjects with nothing.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storeID != "" && c.modelID != ""
}

// SetStore installs the store and model ids, typically after bootstrap.
func (c *Client) SetStore(storeID, modelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeID = storeID
	c.modelID = modelID
}

// StoreID returns the configured store id.
func (c *Client) StoreID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storeID
}

func (c *Client) ids() (storeID, modelID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storeID, c.modelID
}

type tupleKey struct {
	User     string `json:"user"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

type checkRequest struct {
	TupleKey             tupleKey `json:"tuple_key"`
	AuthorizationModelID string   `json:"authorization_model_id"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

// Check asks whether user has relation on object. It never returns an
// error: a configured engine that fails or times out yields false
// (fail-closed), while an unconfigured client yields true (fail-open).
func (c *Client) Check(ctx context.Context, user, relation, object string) bool {
	storeID, modelID := c.ids()
	if storeID == "" || modelID == "" {
		return true
	}

	req := checkRequest{
		TupleKey:             tupleKey{User: user, Relation: relation, Object: object},
		AuthorizationModelID: modelID,
	}

	var resp checkResponse
	url := fmt.Sprintf("%s/stores/%s/check", c.apiURL, storeID)
	if _, err := c.http.PostJSON(ctx, url, req, &resp); err != nil {
		logger.Warnw("authorization check failed, denying",
			"user", user, "relation", relation, "object", object, "error", err)
		return false
	}
	return resp.Allowed
}

type listObjectsRequest struct {
	User                 string `json:"user"`
	Relation             string `json:"relation"`
	Type                 string `json:"type"`
	AuthorizationModelID string `json:"authorization_model_id"`
}

type listObjectsResponse struct {
	Objects []string `json:"objects"`
}

// ListObjects returns the rendered identifiers of objType objects the user
// has relation on. Empty on any failure or when unconfigured.
func (c *Client) ListObjects(ctx context.Context, user, relation string, objType ObjectType) []string {
	storeID, modelID := c.ids()
	if storeID == "" || modelID == "" {
		return nil
	}

	req := listObjectsRequest{
		User:                 user,
		Relation:             relation,
		Type:                 string(objType),
		AuthorizationModelID: modelID,
	}

	var resp listObjectsResponse
	url := fmt.Sprintf("%s/stores/%s/list-objects", c.apiURL, storeID)
	if _, err := c.http.PostJSON(ctx, url, req, &resp); err != nil {
		logger.Warnw("list-objects failed",
			"user", user, "relation", relation, "type", objType, "error", err)
		return nil
	}
	return resp.Objects
}

type tupleKeys struct {
	TupleKeys []Tuple `json:"tuple_keys"`
}

type writeRequest struct {
	Writes               *tupleKeys `json:"writes,omitempty"`
	Deletes              *tupleKeys `json:"deletes,omitempty"`
	AuthorizationModelID string     `json:"authorization_model_id"`
}

// WriteTuples writes a batch of relationship tuples. Best-effort: the
// return says whether the engine accepted the batch as a whole; on false
// the caller must assume none of it landed. Writing an existing tuple is
// a no-op on the engine side.
func (c *Client) WriteTuples(ctx context.Context, tuples []Tuple) bool {
	return c.write(ctx, &writeRequest{Writes: &tupleKeys{TupleKeys: tuples}})
}

// DeleteTuples removes a batch of relationship tuples, symmetric to WriteTuples.
func (c *Client) DeleteTuples(ctx context.Context, tuples []Tuple) bool {
	return c.write(ctx, &writeRequest{Deletes: &tupleKeys{TupleKeys: tuples}})
}

func (c *Client) write(ctx context.Context, req *writeRequest) bool {
	storeID, modelID := c.ids()
	if storeID == "" || modelID == "" {
		return false
	}
	req.AuthorizationModelID = modelID

	url := fmt.Sprintf("%s/stores/%s/write", c.apiURL, storeID)
	status, err := c.http.PostJSON(ctx, url, req, nil)
	if err != nil {
		logger.Warnw("tuple write failed", "error", err)
		return false
	}
	return status == http.StatusOK || status == http.StatusCreated
}

type createStoreRequest struct {
	Name string `json:"name"`
}

type createStoreResponse struct {
	ID string `json:"id"`
}

// CreateStore creates a store on the engine. Setup-time only.
func (c *Client) CreateStore(ctx context.Context, name string) (string, error) {
	var resp createStoreResponse
	url := fmt.Sprintf("%s/stores", c.apiURL)
	if _, err := c.http.PostJSON(ctx, url, createStoreRequest{Name: name}, &resp); err != nil {
		return "", fmt.Errorf("create store: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create store: engine returned no id")
	}
	return resp.ID, nil
}

type writeModelResponse struct {
	AuthorizationModelID string `json:"authorization_model_id"`
}

// WriteAuthorizationModel writes an authorization model document to the
// configured store. Setup-time only; requires a store id.
func (c *Client) WriteAuthorizationModel(ctx context.Context, modelDefinition interface{}) (string, error) {
	storeID, _ := c.ids()
	if storeID == "" {
		return "", fmt.Errorf("write authorization model: no store id configured")
	}

	var resp writeModelResponse
	url := fmt.Sprintf("%s/stores/%s/authorization-models", c.apiURL, storeID)
	if _, err := c.http.PostJSON(ctx, url, modelDefinition, &resp); err != nil {
		return "", fmt.Errorf("write authorization model: %w", err)
	}
	if resp.AuthorizationModelID == "" {
		return "", fmt.Errorf("write authorization model: engine returned no id")
	}
	return resp.AuthorizationModelID, nil
}

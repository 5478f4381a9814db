// Package explorer talks to an Etherscan-compatible explorer API.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"nftwatch/internal/hexnum"
	"nftwatch/internal/model"
)

const (
	DefaultURL     = "https://api.etherscan.io/api"
	defaultTimeout = 10 * time.Second
	latestBlockTag = "latest"
	statusOK       = "1"
	noRecordsFound = "No records found"
)

// Config configures the explorer client. Topic0 optionally restricts
// getLogs to a single event signature.
type Config struct {
	URL        string
	APIKey     string
	ChainID    uint64
	Topic0     *common.Hash
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client fetches logs and the chain head from the explorer.
type Client struct {
	baseURL    string
	apiKey     string
	chainID    uint64
	topic0     *common.Hash
	httpClient *http.Client
}

// NewClient builds a Client, filling defaults for empty fields.
func NewClient(cfg Config) *Client {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = DefaultURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		chainID:    cfg.ChainID,
		topic0:     cfg.Topic0,
		httpClient: httpClient,
	}
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Logs returns the logs emitted by contract within the inclusive range.
// A zero To is sent as "latest".
func (c *Client) Logs(ctx context.Context, contract common.Address, blockRange model.BlockRange) ([]model.RawLog, error) {
	params := url.Values{}
	params.Set("module", "logs")
	params.Set("action", "getLogs")
	params.Set("fromBlock", strconv.FormatUint(blockRange.From, 10))
	if blockRange.To == 0 {
		params.Set("toBlock", latestBlockTag)
	} else {
		params.Set("toBlock", strconv.FormatUint(blockRange.To, 10))
	}
	params.Set("address", contract.Hex())
	if c.topic0 != nil {
		params.Set("topic0", c.topic0.Hex())
	}

	resp, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	if resp.Status != statusOK {
		if strings.HasPrefix(resp.Message, noRecordsFound) {
			return []model.RawLog{}, nil
		}
		return nil, apiError(resp)
	}

	var logs []model.RawLog
	if err := json.Unmarshal(resp.Result, &logs); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	return logs, nil
}

// LatestBlockNumber returns the most recent block known to the explorer.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	params := url.Values{}
	params.Set("module", "proxy")
	params.Set("action", "eth_blockNumber")

	resp, err := c.get(ctx, params)
	if err != nil {
		return 0, err
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("explorer rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	// Proxy responses are JSON-RPC shaped and carry no status unless the
	// request itself was rejected.
	if resp.Status != "" && resp.Status != statusOK {
		return 0, apiError(resp)
	}

	var hexNumber string
	if err := json.Unmarshal(resp.Result, &hexNumber); err != nil {
		return 0, fmt.Errorf("decode block number: %w", err)
	}
	number, err := hexnum.ParseUint64(hexNumber)
	if err != nil {
		return 0, fmt.Errorf("parse block number: %w", err)
	}
	return number, nil
}

func (c *Client) get(ctx context.Context, params url.Values) (apiResponse, error) {
	if c.chainID != 0 {
		params.Set("chainid", strconv.FormatUint(c.chainID, 10))
	}
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apiResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return apiResponse{}, fmt.Errorf("%s %s: %w", params.Get("module"), params.Get("action"), err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return apiResponse{}, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return apiResponse{}, fmt.Errorf("%s %s: unexpected status %d", params.Get("module"), params.Get("action"), httpResp.StatusCode)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return apiResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func apiError(resp apiResponse) error {
	var detail string
	if err := json.Unmarshal(resp.Result, &detail); err != nil || detail == "" {
		return fmt.Errorf("explorer error: %s", resp.Message)
	}
	return fmt.Errorf("explorer error: %s: %s", resp.Message, detail)
}

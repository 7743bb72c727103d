package rpc

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"furnace/internal/logger"
	"furnace/internal/utils"
)

// httpClient HTTP客户端实现
type httpClient struct {
	config *HTTPConfig
	client *http.Client
}

/**
 * Create new HTTP client for the furnace server
 * @param {*HTTPConfig} config - Where the server listens
 * @returns {HTTPClient} HTTP client interface
 * @description
 * - Every request dials config.Network/config.Address, whatever host BaseURL names
 */
func NewHTTPClient(config *HTTPConfig) HTTPClient {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, config.Network, config.Address)
		},
	}
	return &httpClient{
		config: config,
		client: &http.Client{Transport: transport, Timeout: config.Timeout},
	}
}

/**
 * Check whether a furnace server answers on the unix socket
 * @param {string} root - furnace state root
 * @returns {bool} True when the socket accepts connections
 */
func ServerRunning(root string) bool {
	return utils.ProbeUnixSocket(SocketPath(root), 500*time.Millisecond)
}

func (c *httpClient) do(method, path string, params map[string]interface{}, body io.Reader) (*HTTPResponse, error) {
	url, err := buildURL(c.config.BaseURL, path, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	logger.Debugf("Sending %s request to %s via %s://%s", method, url, c.config.Network, c.config.Address)

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	httpResp, err := deserializeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}
	return httpResp, nil
}

// Get 发送GET请求
func (c *httpClient) Get(path string, params map[string]interface{}) (*HTTPResponse, error) {
	return c.do(http.MethodGet, path, params, nil)
}

// Post 发送POST请求
func (c *httpClient) Post(path string, data interface{}) (*HTTPResponse, error) {
	body, err := serializeData(data)
	if err != nil {
		return nil, err
	}
	return c.do(http.MethodPost, path, nil, body)
}

// Delete 发送DELETE请求
func (c *httpClient) Delete(path string, params map[string]interface{}) (*HTTPResponse, error) {
	return c.do(http.MethodDelete, path, params, nil)
}

// Close 关闭客户端连接
func (c *httpClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

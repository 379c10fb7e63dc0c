package rpc

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"craft-keeper/internal/logger"
)

// APIPrefix is the root of the launcher REST routes.
const APIPrefix = "/launcher/api/v1"

// HTTPClient talks to a running craft-keeper server over a unix socket or tcp.
type HTTPClient struct {
	config    *HTTPConfig
	client    *http.Client
	transport *http.Transport
}

/**
 * Create HTTP client for the launcher server
 * @param {*HTTPConfig} config - Client configuration
 * @returns {*HTTPClient} Client, no connection is made until the first request
 * @example
 * client := NewHTTPClient(DefaultHTTPConfig(config.App()))
 * defer client.Close()
 */
func NewHTTPClient(config *HTTPConfig) *HTTPClient {
	c := &HTTPClient{config: config}
	network, address := config.Network, config.Address
	c.transport = &http.Transport{
		// 请求中的主机名只用于构造URL，实际连接到配置的地址
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, address)
		},
	}
	c.client = &http.Client{
		Transport: c.transport,
		Timeout:   config.Timeout,
	}
	return c
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params map[string]interface{}, data, out interface{}) error {
	url, err := buildURL(c.config.BaseURL, path, params)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	body, err := serializeData(data)
	if err != nil {
		return err
	}
	logger.Debugf("Sending %s request to %s via %s://%s", method, url, c.config.Network, c.config.Address)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return deserializeResponse(resp, out)
}

// Get 发送GET请求，结果解码到 out
func (c *HTTPClient) Get(ctx context.Context, path string, params map[string]interface{}, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

// Post 发送POST请求，data 以JSON编码
func (c *HTTPClient) Post(ctx context.Context, path string, data, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, data, out)
}

// Delete 发送DELETE请求
func (c *HTTPClient) Delete(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Close 关闭空闲连接
func (c *HTTPClient) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"craft-keeper/internal/config"
	"craft-keeper/internal/errs"
	"craft-keeper/internal/models"
)

// HTTPConfig 定义HTTP客户端配置
type HTTPConfig struct {
	Address string        //craft-keeper服务侦听地址
	Network string        //unix,tcp...
	Timeout time.Duration // 默认超时时间
	BaseURL string        // 基础URL
}

/**
 * Build the client configuration for a running server
 * @param {*config.AppConfig} cfg - Application configuration
 * @returns {*HTTPConfig} Unix socket when the socket file exists, tcp otherwise
 */
func DefaultHTTPConfig(cfg *config.AppConfig) *HTTPConfig {
	c := &HTTPConfig{
		Address: cfg.Server.Socket,
		Network: "unix",
		Timeout: 10 * time.Second,
		BaseURL: "http://localhost",
	}
	// 检查socket文件是否存在
	if c.Address == "" {
		c.Network = "tcp"
	} else if _, err := os.Stat(c.Address); err != nil {
		c.Network = "tcp"
	}
	if c.Network == "tcp" {
		c.Address = cfg.Server.Address
		if strings.HasPrefix(c.Address, ":") {
			c.Address = "127.0.0.1" + c.Address
		}
		if c.Address == "" {
			c.Address = "127.0.0.1:8999"
		}
	}
	return c
}

// buildURL 构建完整的URL
func buildURL(baseURL, path string, params map[string]interface{}) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")

	if len(params) > 0 {
		q := u.Query()
		for key, value := range params {
			switch v := value.(type) {
			case string:
				q.Set(key, v)
			case bool:
				q.Set(key, fmt.Sprintf("%t", v))
			default:
				q.Set(key, fmt.Sprintf("%v", v))
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// serializeData 序列化请求数据
func serializeData(data interface{}) (io.Reader, error) {
	if data == nil {
		return nil, nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize data: %w", err)
	}
	return bytes.NewReader(jsonData), nil
}

/**
 * Decode a response into out, or into an error for non-2xx statuses
 * @param {*http.Response} resp - Server response, body is closed
 * @param {interface{}} out - Destination of a 2xx JSON body, may be nil
 * @returns {error} *errs.Error when the server reported a known code
 */
func deserializeResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	var eb models.ErrorResponse
	if len(body) == 0 || json.Unmarshal(body, &eb) != nil || eb.Code == "" {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	// INTERNAL 等未知代码不映射到 errs
	switch code := errs.Code(eb.Code); code {
	case errs.CodeDescriptorNotFound, errs.CodeDescriptorParse, errs.CodeCyclicInheritance,
		errs.CodePlanConflict, errs.CodeChecksumMismatch, errs.CodeTransportFailure,
		errs.CodeIncompleteDownload, errs.CodeMissingSubstitution, errs.CodeInvalidInput,
		errs.CodeNotFound:
		return &errs.Error{
			Code:        code,
			VersionID:   eb.VersionID,
			Artifact:    eb.Artifact,
			Path:        eb.Path,
			Placeholder: eb.Placeholder,
		}
	}
	return fmt.Errorf("%s: %s", eb.Code, eb.Message)
}

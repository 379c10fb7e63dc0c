package utils

import (
	"fmt"
	"net"
	"time"
)

/**
 * Check that nothing is listening on a TCP address
 * @param {string} address - host:port the HTTP server is about to bind
 * @returns {error} nil when the port is free
 * @description
 * - A successful dial means another process (often a second server) owns the port
 */
func CheckPortAvailable(address string) error {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("invalid listen address '%s': %w", address, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), time.Second)
	if err != nil {
		// 连接失败，说明端口可用
		return nil
	}
	conn.Close()
	return fmt.Errorf("address %s is already in use", address)
}

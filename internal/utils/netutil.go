package utils

import (
	"fmt"
	"net"
	"time"
)

/**
 * Check whether a local port is free
 * @param {int} port - Port number to check
 * @returns {bool} Returns true if nothing accepts connections on the port
 */
func CheckPortAvailable(port int) bool {
	timeout := time.Second
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", fmt.Sprintf("%d", port)), timeout)
	if err != nil {
		// connection refused means the port is free
		return true
	}
	if conn != nil {
		conn.Close()
		return false
	}
	return true
}

package main

import (
	"fmt"
	"net"
	"path/filepath"
)

func baseName(path string) string {
	return filepath.Base(path)
}

func resolvePeer(host string, port int) (net.Addr, error) {
	return net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
}

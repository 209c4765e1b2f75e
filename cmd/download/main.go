// Command download fetches a file from an ARQ server.
package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"arqftp/internal/arq"
	"arqftp/internal/config"
	"arqftp/internal/endpoint"
	"arqftp/internal/session"
	"arqftp/internal/xlog"
)

var (
	host       string
	port       int
	dst        string
	name       string
	protoFlag  int
	configPath string
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "download",
	Short: "Download a file from an ARQ server",
	RunE:  runDownload,
}

func init() {
	defaults := config.DefaultClientConfig()
	rootCmd.Flags().StringVar(&host, "host", defaults.Host, "server address")
	rootCmd.Flags().IntVar(&port, "port", defaults.Port, "server UDP port")
	rootCmd.Flags().StringVar(&dst, "dst", "", "local destination path (defaults to the remote name in the current directory)")
	rootCmd.Flags().StringVar(&name, "name", "", "remote file name (required)")
	rootCmd.Flags().IntVar(&protoFlag, "protocol", defaults.Protocol, "ARQ strategy: 0 (stop-and-wait) or 1 (selective-repeat)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "optional TOML config file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "error-level logging only")
	_ = rootCmd.MarkFlagRequired("name")
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClientConfig(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if cmd.Flags().Changed("protocol") {
		cfg.Protocol = protoFlag
	}

	if err := config.ValidateHost(cfg.Host); err != nil {
		return err
	}
	if err := config.ValidatePort(cfg.Port); err != nil {
		return err
	}
	mode, err := config.ParseMode(cfg.Protocol)
	if err != nil {
		return err
	}

	destPath := dst
	if destPath == "" {
		destPath = filepath.Base(name)
	}

	log := xlog.New(xlog.FromFlags(verbose, quiet), true, os.Stderr)

	ep, err := endpoint.Bind(cfg.Host, 0)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer ep.Close()

	peer, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	direct := session.NewDirectChannel(ep, peer)
	client := session.NewClient(direct, mode, log)

	log.Info("download: starting", "remote", name, "dst", destPath, "mode", mode.String())

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer f.Close()

	if err := client.Download(name, f); err != nil {
		log.Error("download: failed", "err", err)
		_ = os.Remove(destPath)
		return err
	}
	stats := client.Metrics.Snapshot()
	log.Info("download: complete", "dst", destPath,
		"bytes_received", stats.BytesReceived, "segments_received", stats.SegmentsReceived,
		"duration", stats.Duration)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var maxRetries *arq.MaxRetriesExceededError
	var notFound *session.RemoteFileNotFoundError
	var ioErr *endpoint.IOError
	switch {
	case errors.As(err, &maxRetries):
		return 2
	case errors.As(err, &notFound):
		return 3
	case errors.As(err, &ioErr):
		return 4
	default:
		return 1
	}
}

// Command upload sends a local file to an ARQ server.
package main

import (
	"errors"
	"fmt"
	"os"

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
	src        string
	name       string
	protoFlag  int
	configPath string
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a file to an ARQ server",
	RunE:  runUpload,
}

func init() {
	defaults := config.DefaultClientConfig()
	rootCmd.Flags().StringVar(&host, "host", defaults.Host, "server address")
	rootCmd.Flags().IntVar(&port, "port", defaults.Port, "server UDP port")
	rootCmd.Flags().StringVar(&src, "src", "", "local file to upload (required)")
	rootCmd.Flags().StringVar(&name, "name", "", "remote name (defaults to the source file's base name)")
	rootCmd.Flags().IntVar(&protoFlag, "protocol", defaults.Protocol, "ARQ strategy: 0 (stop-and-wait) or 1 (selective-repeat)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "optional TOML config file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "error-level logging only")
	_ = rootCmd.MarkFlagRequired("src")
}

func runUpload(cmd *cobra.Command, args []string) error {
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

	remoteName := name
	if remoteName == "" {
		remoteName = baseName(src)
	}

	log := xlog.New(xlog.FromFlags(verbose, quiet), true, os.Stderr)

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer f.Close()

	ep, err := endpoint.Bind(cfg.Host, 0)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer ep.Close()

	peer, err := resolvePeer(cfg.Host, cfg.Port)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	direct := session.NewDirectChannel(ep, peer)
	client := session.NewClient(direct, mode, log)

	log.Info("upload: starting", "src", src, "remote", remoteName, "mode", mode.String())
	if err := client.Upload(remoteName, f); err != nil {
		log.Error("upload: failed", "err", err)
		return err
	}
	stats := client.Metrics.Snapshot()
	log.Info("upload: complete", "remote", remoteName,
		"bytes_sent", stats.BytesSent, "segments_sent", stats.SegmentsSent,
		"retransmissions", stats.Retransmissions, "duration", stats.Duration)
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
	var rejected *session.UploadRejectedError
	var ioErr *endpoint.IOError
	switch {
	case errors.As(err, &maxRetries):
		return 2
	case errors.As(err, &rejected):
		return 3
	case errors.As(err, &ioErr):
		return 4
	default:
		return 1
	}
}

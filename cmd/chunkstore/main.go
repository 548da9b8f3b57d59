// chunkstore reads and writes fixed-size chunks of a store from the command
// line.
//
// Settings come from an optional YAML file (--config) and are overridden by
// flags:
//
//	chunkstore --path ./data --name movie --chunk-length 16384 put 3 chunk.bin
//	chunkstore --config store.yaml get 3 --offset 100 --length 50 > part.bin
//	chunkstore --config store.yaml cleanup
//	chunkstore --path ./data purge
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/hupe1980/chunkstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the flags shared by every command.
type globals struct {
	configPath  string
	backendType string
	path        string
	bucket      string
	prefix      string
	endpoint    string
	name        string
	chunkLength int
	logLevel    string
}

func (g *globals) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&g.backendType, "backend", "", "backend type: local, minio or s3")
	fs.StringVar(&g.path, "path", "", "root directory of the local backend")
	fs.StringVar(&g.bucket, "bucket", "", "bucket of the minio or s3 backend")
	fs.StringVar(&g.prefix, "prefix", "", "key prefix of the minio or s3 backend")
	fs.StringVar(&g.endpoint, "endpoint", "", "minio endpoint (host:port)")
	fs.StringVar(&g.name, "name", "", "store name")
	fs.IntVar(&g.chunkLength, "chunk-length", 0, "chunk length in bytes")
	fs.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error or off")
}

// config loads the config file, if any, and applies flag overrides.
func (g *globals) config() (*chunkstore.Config, error) {
	cfg := chunkstore.DefaultConfig()
	cfg.Log.Level = "warn"
	if g.configPath != "" {
		var err error
		if cfg, err = chunkstore.LoadConfig(g.configPath); err != nil {
			return nil, err
		}
	}

	if g.backendType != "" {
		cfg.Backend.Type = g.backendType
	}
	if g.path != "" {
		cfg.Backend.Path = g.path
	}
	if g.bucket != "" {
		cfg.Backend.Bucket = g.bucket
	}
	if g.prefix != "" {
		cfg.Backend.Prefix = g.prefix
	}
	if g.endpoint != "" {
		cfg.Backend.Endpoint = g.endpoint
	}
	if g.name != "" {
		cfg.Store.Name = g.name
	}
	if g.chunkLength != 0 {
		cfg.Store.ChunkLength = g.chunkLength
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var g globals
	fs := pflag.NewFlagSet("chunkstore", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	g.addFlags(fs)
	fs.Usage = func() { printHelp(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		printHelp(stderr, fs)
		return errors.New("missing command")
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}
	return cmd(ctx, &g, fs.Args()[1:], stdin, stdout)
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, `chunkstore reads and writes the chunks of a store.

Usage:
  chunkstore [flags] <command> [args]

Commands:
  put <index> [file]                 write a chunk from file (default stdin)
  get <index> [--offset N] [--length N]  write a chunk to stdout
  cleanup                            discard the cache of a store with files
  destroy                            remove the store and its cache
  purge                              remove the caches of all stores
  info                               print store statistics

Flags:
%s`, fs.FlagUsages())
}

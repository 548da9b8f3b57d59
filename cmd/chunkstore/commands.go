package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/chunkstore"
)

type command func(ctx context.Context, g *globals, args []string, stdin io.Reader, stdout io.Writer) error

var commands = map[string]command{
	"put":     cmdPut,
	"get":     cmdGet,
	"cleanup": cmdCleanup,
	"destroy": cmdDestroy,
	"purge":   cmdPurge,
	"info":    cmdInfo,
}

// withStore opens the configured store, runs fn and closes the store.
func withStore(ctx context.Context, g *globals, fn func(*chunkstore.Store) error) (err error) {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	if cfg.Store.Name == "" {
		return errors.New("a store name is required (--name or store.name)")
	}
	root, err := openBackend(ctx, cfg.Backend)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	s, err := chunkstore.New(ctx, root, cfg.Store.ChunkLength, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(ctx); cerr != nil && !errors.Is(cerr, chunkstore.ErrAlreadyClosed) {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(s)
}

func parseIndex(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, errors.New("missing chunk index")
	}
	index, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid chunk index %q: %w", args[i], err)
	}
	return index, nil
}

func cmdPut(ctx context.Context, g *globals, args []string, stdin io.Reader, _ io.Writer) error {
	index, err := parseIndex(args, 0)
	if err != nil {
		return err
	}
	src := stdin
	if len(args) > 1 && args[1] != "-" {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}
	buf, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	return withStore(ctx, g, func(s *chunkstore.Store) error {
		return s.Put(ctx, index, buf)
	})
}

func cmdGet(ctx context.Context, g *globals, args []string, _ io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("get", pflag.ContinueOnError)
	offset := fs.Int64("offset", 0, "first byte within the chunk")
	length := fs.Int64("length", -1, "number of bytes (default: to the end of the chunk)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	index, err := parseIndex(fs.Args(), 0)
	if err != nil {
		return err
	}

	opts := &chunkstore.GetOptions{Offset: *offset}
	if fs.Changed("length") {
		opts.Length = length
	}
	return withStore(ctx, g, func(s *chunkstore.Store) error {
		data, err := s.Get(ctx, index, opts)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	})
}

func cmdCleanup(ctx context.Context, g *globals, _ []string, _ io.Reader, _ io.Writer) error {
	return withStore(ctx, g, func(s *chunkstore.Store) error {
		return s.Cleanup(ctx)
	})
}

func cmdDestroy(ctx context.Context, g *globals, _ []string, _ io.Reader, _ io.Writer) error {
	return withStore(ctx, g, func(s *chunkstore.Store) error {
		return s.Destroy(ctx)
	})
}

func cmdPurge(ctx context.Context, g *globals, _ []string, _ io.Reader, _ io.Writer) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	root, err := openBackend(ctx, cfg.Backend)
	if err != nil {
		return err
	}
	return chunkstore.PurgeCache(ctx, root)
}

type info struct {
	Name            string `yaml:"name"`
	State           string `yaml:"state"`
	ChunkLength     int    `yaml:"chunk_length"`
	TotalLength     int64  `yaml:"total_length"`
	NumChunks       int    `yaml:"num_chunks"`
	Files           int    `yaml:"files"`
	CachedChunks    int    `yaml:"cached_chunks"`
	OpenWriteQueues int    `yaml:"open_write_queues"`
}

func cmdInfo(ctx context.Context, g *globals, _ []string, _ io.Reader, stdout io.Writer) error {
	return withStore(ctx, g, func(s *chunkstore.Store) error {
		st := s.Stats()
		enc := yaml.NewEncoder(stdout)
		defer enc.Close()
		return enc.Encode(info{
			Name:            st.Name,
			State:           st.State.String(),
			ChunkLength:     st.ChunkLength,
			TotalLength:     st.TotalLength,
			NumChunks:       st.NumChunks,
			Files:           st.Files,
			CachedChunks:    st.CachedChunks,
			OpenWriteQueues: st.OpenWriteQueues,
		})
	})
}

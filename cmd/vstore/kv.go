package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vango-dev/store/internal/config"
	"github.com/vango-dev/store/internal/errors"
	"github.com/vango-dev/store/pkg/persist"
)

// session opens the configured backend for a single command.
type session struct {
	cfg     *config.Config
	backend persist.Backend
	host    *persist.Host
	logger  *slog.Logger
}

func (c *cli) open(ctx context.Context) (*session, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, os.Stderr)

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:     cfg,
		backend: backend,
		host:    persist.NewHost(persist.NewMemoryBackend(), backend),
		logger:  logger,
	}, nil
}

func (s *session) close() {
	if err := closeBackend(s.backend); err != nil {
		s.logger.Warn("closing backend", "error", err)
	}
}

// persistor returns a persistor for key on the local backend, using the
// configured codec.
func (s *session) persistor(key string) *persist.Persistor[any] {
	codec, _ := persist.CodecByName(s.cfg.Backend.Codec)
	return persist.New[any](s.host, key, persist.KindLocal,
		persist.WithCodec(codec),
		persist.WithTimeout(s.cfg.Backend.Timeout),
		persist.WithLogger(s.logger),
	)
}

func (s *session) timeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.Backend.Timeout)
}

func getCmd(c *cli) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a persisted value as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			v, ok := s.persistor(args[0]).Get()
			if !ok {
				return errors.Newf(errors.CategoryPersistence, "key %q not found", args[0])
			}

			var out []byte
			if compact {
				out, err = json.Marshal(v)
			} else {
				out, err = json.MarshalIndent(v, "", "  ")
			}
			if err != nil {
				return errors.New("P001").Wrap(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Print JSON on a single line")

	return cmd
}

func setCmd(c *cli) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a value",
		Long: `Persist a value under key in the configured backend.

The value is parsed as JSON. Values that are not valid JSON are stored
as strings; pass --raw to always store the argument as a string.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			v := parseValue(args[1], raw)
			p := s.persistor(args[0])
			p.Set(v)

			// Set only logs failures, so read back to report them.
			if _, ok := p.Get(); !ok {
				return errors.New("P003").WithDetailf("key %q was not written", args[0])
			}
			success("Set %s", color.CyanString(args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Store the value as a string without JSON parsing")

	return cmd
}

// parseValue decodes arg as JSON, falling back to the string itself.
func parseValue(arg string, raw bool) any {
	if raw {
		return arg
	}
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return arg
	}
	return v
}

func rmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <key>...",
		Aliases: []string{"remove"},
		Short:   "Remove persisted values",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			for _, key := range args {
				ctx, cancel := s.timeout(cmd.Context())
				err := s.backend.RemoveItem(ctx, key)
				cancel()
				if err != nil {
					return errors.New("P003").WithDetailf("removing %q", key).Wrap(err)
				}
				success("Removed %s", color.CyanString(key))
			}
			return nil
		},
	}
}

func clearCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every value in the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.Newf(errors.CategoryPersistence, "refusing to clear without --force")
			}

			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			ctx, cancel := s.timeout(cmd.Context())
			defer cancel()
			if err := s.backend.Clear(ctx); err != nil {
				return errors.New("P003").WithDetail("clearing backend").Wrap(err)
			}
			success("Cleared %s backend", s.cfg.Backend.Driver)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Confirm clearing the backend")

	return cmd
}

func keysCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "keys",
		Aliases: []string{"ls"},
		Short:   "List persisted keys",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			keys, err := listKeys(ctx, s.backend)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				warn("No keys in %s backend", s.cfg.Backend.Driver)
				return nil
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
}

// Command vomctl is a small demo CLI driving a Manager against either
// an in-memory or a Badger-backed vatstore: mint a "note" instance,
// read and update it, flush the cache, and reanimate it back from
// storage; the stats subcommand prints the cache counters. It exists to
// give the package a runnable example, not to be a host-facing vat CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agoric-labs/vom"
	"github.com/agoric-labs/vom/vatstore"
)

// noteRep is vomctl's one demo kind: a single mutable "text" field.
type noteRep struct {
	state *vom.State
}

func (n *noteRep) Initialize(ctx context.Context, args interface{}) error {
	text, _ := args.(string)
	return n.state.Set(ctx, "text", text)
}

func (n *noteRep) Text(ctx context.Context) (string, error) {
	var text string
	if err := n.state.Get(ctx, "text", &text); err != nil {
		return "", err
	}
	return text, nil
}

func (n *noteRep) SetText(ctx context.Context, text string) error {
	return n.state.Set(ctx, "text", text)
}

func noteMaker(state *vom.State) vom.Representative {
	return &noteRep{state: state}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var badgerDir string
	var cacheSize int
	var verbosity string

	log := logrus.StandardLogger()

	root := &cobra.Command{
		Use:   "vomctl",
		Short: "Inspect a Virtual Object Manager against a vatstore",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&badgerDir, "badger-dir", "", "path to a Badger database directory (defaults to an in-memory store)")
	root.PersistentFlags().IntVar(&cacheSize, "cache-size", 4, "bounded LRU cache size")
	root.PersistentFlags().StringVar(&verbosity, "verbosity", "info", "log level (debug, info, warn, error)")

	newManager := func() (*vom.Manager, func() error, error) {
		if lvl, err := logrus.ParseLevel(verbosity); err == nil {
			log.SetLevel(lvl)
		}

		if badgerDir == "" {
			store := vatstore.NewMemoryStore()
			return vom.New(cacheSize, store, vom.WithLogger(log)), func() error { return nil }, nil
		}

		store, err := vatstore.OpenBadgerStore(badgerDir)
		if err != nil {
			return nil, nil, err
		}
		return vom.New(cacheSize, store, vom.WithLogger(log)), store.Close, nil
	}

	root.AddCommand(newCreateCommand(newManager))
	root.AddCommand(newGetCommand(newManager))
	root.AddCommand(newSetCommand(newManager))
	root.AddCommand(newFlushCommand(newManager))
	root.AddCommand(newStatsCommand(newManager))

	return root
}

type managerFactory func() (*vom.Manager, func() error, error)

// noteKind re-derives the same note Kind across independent command
// invocations against a shared vatstore. Since the Manager's default
// allocator hands out export ids sequentially starting at "1", and
// this is the only kind registered, a fresh process always recreates
// "1" as the note kind's id, which is what lets vref strings minted by
// one vomctl invocation resolve correctly in the next.
func noteKind(m *vom.Manager) *vom.Kind {
	return m.MakeKind(noteMaker)
}

func newCreateCommand(newManager managerFactory) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint a new note instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := newManager()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			kind := noteKind(m)
			rep, err := kind.MakeNewInstance(ctx, text)
			if err != nil {
				return err
			}
			if err := m.FlushCache(ctx); err != nil {
				return err
			}
			vref, _ := m.InstanceKeyOf(rep)
			fmt.Println(vref)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "initial note text")
	return cmd
}

func newGetCommand(newManager managerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <vref>",
		Short: "Print a note's current text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := newManager()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			noteKind(m)
			rep, err := m.MakeVirtualObjectRepresentative(ctx, args[0])
			if err != nil {
				return err
			}
			text, err := rep.(*noteRep).Text(ctx)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
	return cmd
}

func newSetCommand(newManager managerFactory) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "set <vref>",
		Short: "Update a note's text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := newManager()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			noteKind(m)
			rep, err := m.MakeVirtualObjectRepresentative(ctx, args[0])
			if err != nil {
				return err
			}
			if err := rep.(*noteRep).SetText(ctx, text); err != nil {
				return err
			}
			return m.FlushCache(ctx)
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "new note text")
	return cmd
}

func newFlushCommand(newManager managerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Evict every resident inner self to storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := newManager()
			if err != nil {
				return err
			}
			defer closeFn()
			return m.FlushCache(cmd.Context())
		},
	}
}

func newStatsCommand(newManager managerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print cache hit/miss/eviction counters for a fresh session",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := newManager()
			if err != nil {
				return err
			}
			defer closeFn()
			s := m.CacheStats()
			fmt.Printf("hits=%d misses=%d evictions=%d\n", s.Hits, s.Misses, s.Evictions)
			return nil
		},
	}
}

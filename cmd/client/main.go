// Command davlock is a command-line client for davlockd.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jathurchan/davlock/client"
	"github.com/jathurchan/davlock/header"
	"github.com/jathurchan/davlock/types"
	"github.com/spf13/cobra"
)

const (
	defaultEndpoint = "127.0.0.1:7070"
	defaultTimeout  = 5 * time.Second
)

// errNotSatisfied is returned by the check command so the process exits
// non-zero when an If header fails.
var errNotSatisfied = errors.New("precondition failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "davlock",
		Short:        "Client for the davlockd lock service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringSliceP("endpoint", "e", []string{defaultEndpoint}, "Server endpoints, tried in order")
	root.PersistentFlags().Duration("timeout", defaultTimeout, "Timeout for each command")

	root.AddCommand(newLockCmd())
	root.AddCommand(newHoldCmd())
	root.AddCommand(newRefreshCmd())
	root.AddCommand(newUnlockCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newParseCmd())
	return root
}

// newClient builds a client from the persistent flags. The caller must
// close it.
func newClient(cmd *cobra.Command) (client.LockClient, error) {
	endpoints, _ := cmd.Flags().GetStringSlice("endpoint")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	c, err := client.NewLockClientBuilder(endpoints).
		WithTimeouts(timeout, timeout).
		Build()
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return c, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return context.WithTimeout(cmd.Context(), timeout)
}

func addLockFlags(cmd *cobra.Command) {
	cmd.Flags().String("scope", string(types.AccessExclusive), "Lock scope: exclusive or shared")
	cmd.Flags().String("depth", "infinity", "Depth header value: 0 or infinity")
	cmd.Flags().String("owner", "", "Lock owner")
	cmd.Flags().String("lock-timeout", "", "Timeout header value, e.g. Second-600 (server default when empty)")
}

func lockRequest(cmd *cobra.Command, path string) *client.CreateRequest {
	scope, _ := cmd.Flags().GetString("scope")
	depth, _ := cmd.Flags().GetString("depth")
	owner, _ := cmd.Flags().GetString("owner")
	timeout, _ := cmd.Flags().GetString("lock-timeout")
	return &client.CreateRequest{
		Path:    path,
		Depth:   depth,
		Scope:   types.AccessType(scope),
		Owner:   types.Owner(owner),
		Timeout: timeout,
	}
}

func newLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock PATH",
		Short: "Create a lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			l, err := c.Create(ctx, lockRequest(cmd, args[0]))
			if err != nil {
				return err
			}
			printLock(cmd.OutOrStdout(), l)
			return nil
		},
	}
	addLockFlags(cmd)
	return cmd
}

func newHoldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hold PATH",
		Short: "Wait for a lock, then keep refreshing it until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			req := lockRequest(cmd, args[0])
			if req.Owner == "" {
				return errors.New("hold requires --owner")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = client.RunWithLock(ctx, c, *req, func(ctx context.Context, l types.ActiveLock) error {
				printLock(cmd.OutOrStdout(), l)
				<-ctx.Done()
				return ctx.Err()
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	addLockFlags(cmd)
	return cmd
}

func newRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh TOKEN",
		Short: "Refresh a lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			timeout, _ := cmd.Flags().GetString("lock-timeout")

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			l, err := c.Refresh(ctx, &client.RefreshRequest{
				LockToken: args[0],
				Owner:     types.Owner(owner),
				Timeout:   timeout,
			})
			if err != nil {
				return err
			}
			printLock(cmd.OutOrStdout(), l)
			return nil
		},
	}
	cmd.Flags().String("owner", "", "Lock owner")
	cmd.Flags().String("lock-timeout", "", "Timeout header value (keeps the current timeout when empty)")
	return cmd
}

func newUnlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock TOKEN",
		Short: "Release a lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := c.Release(ctx, &client.ReleaseRequest{LockToken: args[0], Owner: types.Owner(owner)}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Released %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().String("owner", "", "Lock owner")
	return cmd
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [PATH]",
		Short: "List live locks, all or those applying to PATH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			var locks []types.ActiveLock
			if len(args) == 1 {
				locks, err = c.FindActive(ctx, args[0], types.Owner(owner))
			} else {
				locks, err = c.FindAll(ctx, types.Owner(owner))
			}
			if err != nil {
				return err
			}
			printLocks(cmd.OutOrStdout(), locks)
			return nil
		},
	}
	cmd.Flags().String("owner", "", "Only list locks of this owner")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check PATH IF",
		Short: "Evaluate an If header for a request on PATH",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			ok, err := c.EvaluateIf(ctx, &client.EvaluateIfRequest{Path: args[0], If: args[1]})
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "not satisfied")
				return errNotSatisfied
			}
			fmt.Fprintln(cmd.OutOrStdout(), "satisfied")
			return nil
		},
	}
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse IF",
		Short: "Parse an If header locally and print its structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := header.ParseIf(args[0])
			if err != nil {
				return err
			}
			printIfHeader(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func depthString(recursive bool) string {
	if recursive {
		return "infinity"
	}
	return "0"
}

func printLock(w io.Writer, l types.ActiveLock) {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "Lock-Token:\t%s\n", l.StateToken.CodedURL())
	fmt.Fprintf(tw, "Path:\t%s\n", l.Path)
	fmt.Fprintf(tw, "Scope:\t%s\n", l.AccessType)
	fmt.Fprintf(tw, "Depth:\t%s\n", depthString(l.Recursive))
	if !l.Owner.IsZero() {
		fmt.Fprintf(tw, "Owner:\t%s\n", l.Owner)
	}
	fmt.Fprintf(tw, "Timeout:\t%s\n", header.Timeout{Duration: l.Timeout})
	fmt.Fprintf(tw, "Expires:\t%s\n", l.Expiration.Format(time.RFC3339))
	tw.Flush()
}

func printLocks(w io.Writer, locks []types.ActiveLock) {
	if len(locks) == 0 {
		fmt.Fprintln(w, "No locks")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tPATH\tSCOPE\tDEPTH\tOWNER\tEXPIRES")
	for _, l := range locks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.StateToken, l.Path, l.AccessType, depthString(l.Recursive), l.Owner, l.Expiration.Format(time.RFC3339))
	}
	tw.Flush()
}

func printIfHeader(w io.Writer, h header.IfHeader) {
	if h.IsTagged() {
		for _, t := range h.TaggedLists() {
			fmt.Fprintf(w, "tagged <%s>\n", t.Reference)
			for _, l := range t.Lists {
				fmt.Fprintf(w, "  %s\n", l)
			}
		}
	} else {
		for _, n := range h.NoTagLists() {
			fmt.Fprintf(w, "no-tag %s\n", n)
		}
	}
	if tokens := h.StateTokens(); len(tokens) > 0 {
		fmt.Fprintf(w, "state tokens: %s\n", strings.Join(tokens, " "))
	}
}

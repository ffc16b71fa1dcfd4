package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/itemops/group"
	"github.com/jonwraymond/itemops/health"
	"github.com/jonwraymond/itemops/item"
	"github.com/jonwraymond/itemops/registry"
)

func variantLabel(v item.Variant) string {
	if v.Damage == 0 {
		return v.Type
	}
	return v.Type + ":" + strconv.Itoa(v.Damage)
}

func newClassifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Print the group of every catalog item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			c := a.engine.Classifier()
			hidden := 0
			for _, v := range a.engine.Catalog().Variants() {
				idx := c.IndexOf(v)
				if idx == group.NoGroup {
					fmt.Fprintf(out, "%-40s -\n", variantLabel(v))
					continue
				}
				name, _ := c.DisplayName(idx)
				fmt.Fprintf(out, "%-40s %d %s\n", variantLabel(v), idx, name)
				if !c.IsExpanded(idx) {
					hidden++
				}
			}
			fmt.Fprintf(out, "%d items in collapsed groups\n", hidden)
			return nil
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <pattern>",
		Short: "List catalog items whose display text matches a pattern",
		Long: `Search matches a case-insensitive regular expression against the
display lines of each item, excluding the name line. Formatting codes
are stripped before matching.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			<-a.engine.Warm()
			matches, err := a.engine.Search(args[0])
			if err != nil {
				return err
			}
			for _, v := range matches {
				fmt.Fprintln(cmd.OutOrStdout(), variantLabel(v))
			}
			return nil
		},
	}
}

func newKeyCmd(a *app) *cobra.Command {
	var (
		damage int
		tag    string
	)
	cmd := &cobra.Command{
		Use:   "key <type>",
		Short: "Print the canonical key of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, ok := registry.ParseItem(args[0], tag)
			if !ok {
				return fmt.Errorf("cannot read item %q with tag %q", args[0], tag)
			}
			v.Damage = damage
			key, ok := a.engine.Resolver().CanonicalKey(v)
			if !ok {
				return fmt.Errorf("no strategy converts %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	cmd.Flags().IntVar(&damage, "damage", 0, "item damage")
	cmd.Flags().StringVar(&tag, "tag", "", "metadata as JSON or YAML flow syntax")
	return cmd
}

func newGroupsCmd(a *app) *cobra.Command {
	var (
		expand   []int
		collapse []int
		toggle   bool
	)
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List groups and change their expand state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c := a.engine.Classifier()
			if toggle {
				if err := c.ToggleAll(ctx, nil); err != nil {
					return err
				}
			}
			for _, i := range expand {
				if err := c.SetExpanded(ctx, i, true); err != nil {
					return err
				}
			}
			for _, i := range collapse {
				if err := c.SetExpanded(ctx, i, false); err != nil {
					return err
				}
			}
			printGroups(cmd.OutOrStdout(), c.Groups())
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&expand, "expand", nil, "group indexes to expand")
	cmd.Flags().IntSliceVar(&collapse, "collapse", nil, "group indexes to collapse")
	cmd.Flags().BoolVar(&toggle, "toggle", false, "toggle every group")
	return cmd
}

func printGroups(w io.Writer, groups []group.Group) {
	for i, g := range groups {
		state := "collapsed"
		if g.Expanded {
			state = "expanded"
		}
		fmt.Fprintf(w, "%3d %-9s %s %s\n", i, state, g.ID, g.DisplayName)
	}
}

func newHandlersCmd(a *app) *cobra.Command {
	var damage int
	cmd := &cobra.Command{
		Use:   "handlers [type]",
		Short: "List registered handlers, or those using an item as catalyst",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			r := a.engine.Registry()
			if len(args) == 0 {
				for _, h := range r.Handlers() {
					fmt.Fprintf(out, "%-30s %-20s %d catalysts\n", h.HandlerID, h.ModName, len(r.Catalysts(h.HandlerID)))
				}
				return nil
			}

			v := item.New(args[0], damage)
			for _, m := range a.engine.HandlersFor(cmd.Context(), v) {
				fmt.Fprintf(out, "%-30s priority %d\n", m.HandlerID(), r.Priority(m.HandlerID()))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&damage, "damage", 0, "item damage")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload definitions whenever their files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.engine.Watch(cmd.Context())
		},
	}
}

var errUnhealthy = errors.New("itemops: unhealthy")

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the state store, definition files and caches",
		Long: `Health runs every check once the search index is warm. Degraded
checks are reported but only an unhealthy check fails the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			select {
			case <-a.engine.Warm():
			case <-ctx.Done():
				return ctx.Err()
			}

			out := cmd.OutOrStdout()
			reports := a.engine.Health().CheckAll(ctx)
			for _, r := range reports {
				fmt.Fprintf(out, "%-12s %-9s %s\n", r.Name, r.Status, r.Message)
				if r.Error != nil {
					fmt.Fprintf(out, "%-12s %-9s %v\n", "", "", r.Error)
				}
			}
			overall := health.Overall(reports)
			fmt.Fprintf(out, "overall %s\n", overall)
			if overall == health.StatusUnhealthy {
				return errUnhealthy
			}
			return nil
		},
	}
}

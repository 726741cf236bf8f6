package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ggoodman/mcp-userdir/users"
)

func newUsersCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and edit the user directory",
	}
	cmd.AddCommand(newUsersListCmd(g), newUsersGetCmd(g), newUsersAddCmd(g))
	return cmd
}

func newUsersListCmd(g *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			all, err := a.repo.List(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, all)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func newUsersGetCmd(g *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			a, err := newApp(cmd.Context(), g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := users.Get(cmd.Context(), a.repo, id)
			if errors.Is(err, users.ErrNotFound) {
				return fmt.Errorf("user %d doesn't exist", id)
			}
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, u)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func newUsersAddCmd(g *globalOptions) *cobra.Command {
	var c users.Candidate
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.repo.Append(cmd.Context(), c)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "User %d created successfully\n", id)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.Name, "name", "", "user's name")
	f.StringVar(&c.Email, "email", "", "user's email")
	f.StringVar(&c.Address, "address", "", "user's address")
	f.StringVar(&c.Phone, "phone", "", "user's phone number")
	for _, name := range []string{"name", "email", "address", "phone"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

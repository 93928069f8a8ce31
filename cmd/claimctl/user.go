package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garyjia/claimflow/internal/domain/entity"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Provision the actors the identity middleware resolves",
	}
	cmd.AddCommand(newUserAddCmd(a), newUserListCmd(a))
	return cmd
}

func newUserAddCmd(a *app) *cobra.Command {
	var (
		name         string
		approver     string
		capabilities []string
	)

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Create or replace a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor := &entity.Actor{
				ID:         strings.TrimSpace(args[0]),
				Name:       name,
				ApproverID: approver,
			}
			if actor.ID == "" {
				return fmt.Errorf("user id must not be empty")
			}
			if actor.ApproverID == actor.ID {
				return fmt.Errorf("user %s cannot approve their own claims", actor.ID)
			}
			for _, c := range capabilities {
				capability := entity.Capability(c)
				if capability != entity.CapabilityFinanceAudit && capability != entity.CapabilityUserManagement {
					return fmt.Errorf("unknown capability %q", c)
				}
				actor.Capabilities = append(actor.Capabilities, capability)
			}

			c, err := a.start(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Repositories().Actors.Upsert(cmd.Context(), actor); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved user %s\n", actor.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&approver, "approver", "", "id of the user who approves this user's claims")
	cmd.Flags().StringSliceVar(&capabilities, "capability", nil, "finance-audit or user-management (repeatable)")
	return cmd
}

func newUserListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.start(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			actors, err := c.Repositories().Actors.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tAPPROVER\tCAPABILITIES")
			for _, actor := range actors {
				caps := make([]string, len(actor.Capabilities))
				for i, capability := range actor.Capabilities {
					caps[i] = string(capability)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", actor.ID, actor.Name, actor.ApproverID, strings.Join(caps, ","))
			}
			return w.Flush()
		},
	}
}

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/menuya/internal/clock"
	"github.com/smallbiznis/menuya/internal/config"
	discountdomain "github.com/smallbiznis/menuya/internal/discount/domain"
	"github.com/smallbiznis/menuya/internal/discount/repository"
	"github.com/smallbiznis/menuya/internal/discount/service"
	"github.com/spf13/cobra"
)

var errNoIdentity = errors.New("specify the customer with --email or --key")

type identityFlags struct {
	email string
	key   string
}

func (f *identityFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "Registered customer email")
	cmd.Flags().StringVar(&f.key, "key", "", "Anonymous device key")
}

func (f *identityFlags) identity() (discountdomain.CustomerIdentity, error) {
	id := discountdomain.CustomerIdentity{
		Email:        strings.TrimSpace(f.email),
		AnonymousKey: strings.TrimSpace(f.key),
	}
	if !id.Known() {
		return id, errNoIdentity
	}
	return id, nil
}

func newDiscountCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discount",
		Short: "Inspect and reset mini-game discounts",
	}
	cmd.AddCommand(newDiscountShowCmd(e))
	cmd.AddCommand(newDiscountResetLossCmd(e))
	return cmd
}

func (e *env) discounts() (discountdomain.Service, error) {
	conn, err := e.open()
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	node, err := snowflake.NewNode(2)
	if err != nil {
		return nil, err
	}
	return service.New(service.Params{
		DB:       conn,
		Log:      e.logger(),
		GenID:    node,
		Clock:    clock.SystemClock{},
		Repo:     repository.Provide(),
		Percents: config.DefaultDiscountConfig(),
	}), nil
}

func newDiscountShowCmd(e *env) *cobra.Command {
	var (
		flags identityFlags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a customer's discount and recent game results",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := flags.identity()
			if err != nil {
				return err
			}
			svc, err := e.discounts()
			if err != nil {
				return err
			}

			current, err := svc.Current(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("load discount: %w", err)
			}
			results, err := svc.ListResults(cmd.Context(), id, limit)
			if err != nil {
				return fmt.Errorf("load results: %w", err)
			}

			fmt.Fprint(cmd.OutOrStdout(), RenderDiscount(id.Key(), current, results))
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of game results to show")
	return cmd
}

func newDiscountResetLossCmd(e *env) *cobra.Command {
	var flags identityFlags

	cmd := &cobra.Command{
		Use:   "reset-loss",
		Short: "Clear a customer's lost-game flag so a later win grants a discount",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := flags.identity()
			if err != nil {
				return err
			}
			svc, err := e.discounts()
			if err != nil {
				return err
			}

			eligibility, err := svc.ResetLoss(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("reset loss: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s loss cleared for %s\n", passStyle.Render("✓"), eligibility.CustomerKey)
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

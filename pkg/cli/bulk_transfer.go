package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dnachain/dna-smoke/pkg/config"
	"github.com/dnachain/dna-smoke/pkg/scenario"
)

func newBulkTransferCmd() *cobra.Command {
	var master, accountList string

	cmd := &cobra.Command{
		Use:   "bulk-transfer",
		Short: "Fund test accounts and have each one pay a random peer",
		Example: `  dnasmoke bulk-transfer --master-account '{"master.json":"pass"}' \
    --accounts '[{"a.json":"pass"},{"b.json":"pass"}]'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			masterSigner, err := a.resolveAccount("master-account", master)
			if err != nil {
				return err
			}
			descriptors, err := config.ParseAccountDescriptors(accountList)
			if err != nil {
				return fmt.Errorf("--accounts: %w", err)
			}
			signers, err := a.resolver().ResolveAll(descriptors)
			if err != nil {
				return fmt.Errorf("--accounts: %w", err)
			}

			return a.run(cmd.Context(), "bulk-transfer", func(ctx context.Context, r *scenario.Runner) error {
				_, err := r.BulkTransfer(ctx, masterSigner, signers)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&master, "master-account", "", "Faucet account funding the test accounts")
	cmd.Flags().StringVar(&accountList, "accounts", "", "JSON array of test accounts")
	_ = cmd.MarkFlagRequired("master-account")
	_ = cmd.MarkFlagRequired("accounts")
	return cmd
}

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dnachain/dna-smoke/pkg/scenario"
)

func newDexCmd() *cobra.Command {
	var master, issuer, trader string

	cmd := &cobra.Command{
		Use:   "dex",
		Short: "Issue two assets and match orders on the exchange",
		Long: `Funds the issuer and trader from the master account, issues BTC and ETH,
deposits BTC to the trader, opens a BTC/ETH pair and matches a sell order of
the issuer with a buy order of the trader.

Accounts are given as {"<key-file.json>":"<passphrase>"}.`,
		Example: `  dnasmoke dex --master-account '{"master.json":"pass"}' \
    --issuer '{"issuer.json":"pass"}' --trader '{"trader.json":"pass"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			var accounts scenario.DexAccounts
			if accounts.Master, err = a.resolveAccount("master-account", master); err != nil {
				return err
			}
			if accounts.Issuer, err = a.resolveAccount("issuer", issuer); err != nil {
				return err
			}
			if accounts.Trader, err = a.resolveAccount("trader", trader); err != nil {
				return err
			}

			return a.run(cmd.Context(), "dex", func(ctx context.Context, r *scenario.Runner) error {
				_, err := r.Dex(ctx, accounts)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&master, "master-account", "", "Faucet account funding issuer and trader")
	cmd.Flags().StringVar(&issuer, "issuer", "", "Account issuing the assets")
	cmd.Flags().StringVar(&trader, "trader", "", "Account buying on the exchange")
	_ = cmd.MarkFlagRequired("master-account")
	_ = cmd.MarkFlagRequired("issuer")
	_ = cmd.MarkFlagRequired("trader")
	return cmd
}

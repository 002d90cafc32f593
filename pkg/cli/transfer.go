package cli

import (
	"context"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"
	"github.com/vedhavyas/go-subkey/v2"

	"github.com/dnachain/dna-smoke/pkg/models"
	"github.com/dnachain/dna-smoke/pkg/scenario"
)

func newTransferCmd() *cobra.Command {
	var mnemonic, keyType, to, amount string

	cmd := &cobra.Command{
		Use:     "transfer",
		Short:   "Send a balance transfer from a mnemonic derived account",
		Example: `  dnasmoke transfer --mnemonic "//Alice" --to 5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty --amount 1000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			algorithm, err := models.ParseKeyAlgorithm(keyType)
			if err != nil {
				return fmt.Errorf("--key-type: %w", err)
			}
			value, ok := new(big.Int).SetString(amount, 10)
			if !ok || value.Sign() <= 0 {
				return fmt.Errorf("--amount must be a positive integer, got %q", amount)
			}
			if _, _, err := subkey.SS58Decode(to); err != nil {
				return fmt.Errorf("--to: invalid address %q: %v", to, err)
			}
			sender, err := a.resolver().ResolveMnemonic(mnemonic, algorithm)
			if err != nil {
				return fmt.Errorf("--mnemonic: %w", err)
			}

			return a.run(cmd.Context(), "transfer", func(ctx context.Context, r *scenario.Runner) error {
				_, err := r.Transfer(ctx, sender, to, value)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "Secret phrase, optionally with a derivation path")
	cmd.Flags().StringVar(&keyType, "key-type", string(models.Sr25519), "Key algorithm: sr25519 or ed25519")
	cmd.Flags().StringVar(&to, "to", "", "Destination address")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in base units")
	_ = cmd.MarkFlagRequired("mnemonic")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

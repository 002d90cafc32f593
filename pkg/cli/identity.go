package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dnachain/dna-smoke/pkg/models"
	"github.com/dnachain/dna-smoke/pkg/scenario"
)

func newIdentityCmd() *cobra.Command {
	var sudo, master, registrar, user, judgement string
	opts := scenario.DefaultIdentityOptions()

	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Register a registrar and have it judge a user identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			if opts.Judgement, err = models.ParseJudgement(judgement); err != nil {
				return err
			}

			var accounts scenario.IdentityAccounts
			if accounts.Sudo, err = a.resolveAccount("sudo-account", sudo); err != nil {
				return err
			}
			if accounts.Master, err = a.resolveAccount("master-account", master); err != nil {
				return err
			}
			if accounts.Registrar, err = a.resolveAccount("registrar", registrar); err != nil {
				return err
			}
			if accounts.User, err = a.resolveAccount("user", user); err != nil {
				return err
			}

			return a.run(cmd.Context(), "identity", func(ctx context.Context, r *scenario.Runner) error {
				_, err := r.Identity(ctx, accounts, opts)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&sudo, "sudo-account", "", "Sudo key account")
	cmd.Flags().StringVar(&master, "master-account", "", "Faucet account funding registrar and user")
	cmd.Flags().StringVar(&registrar, "registrar", "", "Account added as registrar")
	cmd.Flags().StringVar(&user, "user", "", "Account requesting a judgement")
	cmd.Flags().StringVar(&opts.RegistrarDisplay, "registrar-name", opts.RegistrarDisplay, "Display name of the registrar")
	cmd.Flags().StringVar(&opts.UserDisplay, "user-name", opts.UserDisplay, "Display name of the user")
	cmd.Flags().StringVar(&judgement, "judgement", "feepaid", "Judgement the registrar provides")
	_ = cmd.MarkFlagRequired("sudo-account")
	_ = cmd.MarkFlagRequired("master-account")
	_ = cmd.MarkFlagRequired("registrar")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

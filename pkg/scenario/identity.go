package scenario

import (
	"context"
	"math/big"

	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/models"
)

// IdentityAccounts are the signers of the identity workflow
type IdentityAccounts struct {
	Sudo      models.Signer
	Master    models.Signer
	Registrar models.Signer
	User      models.Signer
}

// IdentityOptions are the values the identity workflow submits
type IdentityOptions struct {
	RegistrarDisplay string
	UserDisplay      string
	MaxFee           *big.Int
	Judgement        models.Judgement
}

// DefaultIdentityOptions returns the values of the standard run
func DefaultIdentityOptions() IdentityOptions {
	return IdentityOptions{
		RegistrarDisplay: "KUSH",
		UserDisplay:      "DHRUV",
		MaxFee:           big.NewInt(10),
		Judgement:        models.JudgementFeePaid,
	}
}

// Identity funds a registrar and a user, sets both identities, registers the
// registrar through sudo, then has the user request and the registrar
// provide a judgement.
func (r *Runner) Identity(ctx context.Context, accounts IdentityAccounts, opts IdentityOptions) (registrarIndex uint32, err error) {
	finish := r.begin("identity")
	defer finish(&err)

	funding := r.thresholds.IdentityFunding
	if _, err := r.EnsureFunded(ctx, logger.Registrar, accounts.Master, accounts.Registrar.Address(), funding, funding); err != nil {
		return 0, err
	}
	if _, err := r.EnsureFunded(ctx, logger.User, accounts.Master, accounts.User.Address(), funding, funding); err != nil {
		return 0, err
	}

	if _, err := r.submit(ctx, logger.Registrar, "set registrar identity", accounts.Registrar,
		models.SetIdentity{Info: models.IdentityInfo{Display: []byte(opts.RegistrarDisplay)}}); err != nil {
		return 0, err
	}
	userInfo := models.IdentityInfo{Display: []byte(opts.UserDisplay)}
	if _, err := r.submit(ctx, logger.User, "set user identity", accounts.User,
		models.SetIdentity{Info: userInfo}); err != nil {
		return 0, err
	}

	outcome, err := r.submit(ctx, logger.Sudo, "add registrar", accounts.Sudo,
		models.Sudo{Call: models.AddRegistrar{Account: accounts.Registrar.Address()}})
	if err != nil {
		return 0, err
	}
	// RegistrarAdded(RegistrarIndex); fall back to the first slot when it
	// cannot be read
	if e, ok := outcome.Event(models.EventRegistrarAdded); ok {
		if idx, err := e.Amount(0); err == nil && idx.IsUint64() && idx.Uint64() <= uint64(^uint32(0)) {
			registrarIndex = uint32(idx.Uint64())
		}
	}
	r.logger.InfoWithRole(logger.Sudo, "Registrar %s added at index %d", accounts.Registrar.Address(), registrarIndex)

	if _, err := r.submit(ctx, logger.User, "request judgement", accounts.User,
		models.RequestJudgement{RegistrarIndex: registrarIndex, MaxFee: opts.MaxFee}); err != nil {
		return registrarIndex, err
	}

	if _, err := r.submit(ctx, logger.Registrar, "provide judgement", accounts.Registrar,
		models.ProvideJudgement{
			RegistrarIndex: registrarIndex,
			Target:         accounts.User.Address(),
			Judgement:      opts.Judgement,
			Info:           userInfo,
		}); err != nil {
		return registrarIndex, err
	}
	return registrarIndex, nil
}

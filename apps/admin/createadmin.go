package main

import (
	"context"
	"time"

	"github.com/trezcool/candidature/core"
	"github.com/trezcool/candidature/core/account"
)

// createAdmin creates an admin account.Account.
func (cli *commandLine) createAdmin(email, nom, prenom, pwd string) error {
	ctx := context.Background()

	if err := cli.acctRepo.CheckEmailUniqueness(ctx, core.CleanString(email, true /* lower */)); err != nil {
		return err
	}

	now := time.Now().UTC()
	acct := account.Account{
		Nom:       core.CleanString(nom),
		Prenom:    core.CleanString(prenom),
		Email:     core.CleanString(email, true /* lower */),
		Role:      core.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acct.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.acctRepo.CreateAccount(ctx, acct); err != nil {
		return err
	}
	return nil
}

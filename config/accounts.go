package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultStartingBalance is assumed for accounts not listed in the accounts
// file.
const DefaultStartingBalance = 50000

// Accounts maps account names to their configured starting balances. The
// broker API does not report the funded amount, so it comes from
// configuration.
type Accounts struct {
	StartingBalances map[string]float64 `yaml:"accounts"`
}

// LoadAccounts reads the accounts file. A missing file is not an error:
// every account then gets the default starting balance.
func LoadAccounts(path string) (*Accounts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Accounts{StartingBalances: map[string]float64{}}, nil
		}
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	a := &Accounts{}
	if err := yaml.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}
	if a.StartingBalances == nil {
		a.StartingBalances = map[string]float64{}
	}

	for name, balance := range a.StartingBalances {
		if balance <= 0 {
			return nil, fmt.Errorf("account %q: starting balance must be positive", name)
		}
	}
	return a, nil
}

// StartingBalance returns the configured starting balance for an account
// name, or the default when unlisted.
func (a *Accounts) StartingBalance(name string) float64 {
	if balance, ok := a.StartingBalances[name]; ok {
		return balance
	}
	return DefaultStartingBalance
}

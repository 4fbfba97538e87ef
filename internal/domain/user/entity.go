package user

// AccountType represents account type (matches users.account_type check)
type AccountType string

const (
	AccountIndividual AccountType = "individual"
	AccountAgency     AccountType = "agency"
	AccountAdmin      AccountType = "admin"
)

const (
	agencyFreeCredits  = 1
	defaultFreeCredits = 3
)

// FreeCreditsLimit returns how many listings an account type may keep active for free.
func FreeCreditsLimit(t AccountType) int {
	if t == AccountAgency {
		return agencyFreeCredits
	}
	return defaultFreeCredits
}

package ledger

import "fmt"

const (
	detailInitial     = "Transaction is done"
	detailSaveFailure = "Error while saving data to the database"
	detailBadAmount   = "Amount must be greater than zero."
	detailAmountScale = "Amount must have at most two decimal places and fit the ledger precision."
)

func detailBalanceLimit(id string) string {
	return fmt.Sprintf("Balance limit exceeded for the account id %s", id)
}

func detailBadAccount(raw string) string {
	return fmt.Sprintf("Account id %s is not valid (bad format)", raw)
}

func detailBadRelatedAccount(raw string) string {
	return fmt.Sprintf("Related account id %s is not valid (bad format)", raw)
}

func detailMissingFrom(id string) string {
	return fmt.Sprintf("Cannot find account with id %s (from account)", id)
}

func detailMissingTo(id string) string {
	return fmt.Sprintf("Cannot find account with id %s (to account)", id)
}

func detailInsufficient(id string) string {
	return fmt.Sprintf("There are not enough balance in the account id %s", id)
}

func detailDeposit(id string) string {
	return fmt.Sprintf("Deposit to the account %s", id)
}

func detailWithdraw(id string) string {
	return fmt.Sprintf("Withdraw from the account %s", id)
}

func detailTransfer(from, to string) string {
	return fmt.Sprintf("Transfer from account %s to account %s", from, to)
}

func detailUnsupportedType(value int) string {
	return fmt.Sprintf("Transaction type %d is not supported", value)
}

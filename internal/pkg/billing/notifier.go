package billing

import "log"

// Notifier is the operator-visible channel for keys minted by the webhook
// pipeline. There is no interactive recipient at delivery time, so the raw
// key has to surface somewhere an operator can hand it to the customer.
type Notifier interface {
	CredentialMinted(userID, credentialID, rawKey string)
}

// LogNotifier writes minted keys to the process log. The key appears exactly
// once; nothing downstream can recover it afterwards.
type LogNotifier struct{}

func (LogNotifier) CredentialMinted(userID, credentialID, rawKey string) {
	log.Printf("billing: minted api key for user %s (credential %s): %s", userID, credentialID, rawKey)
}

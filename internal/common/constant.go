// Package common contains shared constants, sentinel errors and small helpers
// used across mailkeeper components.
package common

import "fmt"

// namespaceFormat scopes all stored configuration of one account.
const namespaceFormat = "identity:%d.account:%d"

// Namespace returns the config store namespace of the given account.
func Namespace(identityID, accountID int64) string {
	return fmt.Sprintf(namespaceFormat, identityID, accountID)
}

package profiles

import (
	"strings"

	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// Everyone matches all credentials when listed in an access control list.
const Everyone = "everyone"

// ACLChecker matches credentials against access control lists.
//
// An entry is either a bare name, matched against the user, group, account, class, and QOS of the credentials,
// or a name qualified by the credential it must match, e.g., "group:hpc".
// An empty list grants access to everyone.
type ACLChecker struct{}

func (ACLChecker) CheckAccess(credentials schedulerobjects.Credentials, acl []string) bool {
	if len(acl) == 0 {
		return true
	}
	for _, entry := range acl {
		entry = strings.TrimSpace(entry)
		if strings.EqualFold(entry, Everyone) {
			return true
		}
		kind, name, qualified := strings.Cut(entry, ":")
		if !qualified {
			for _, accessor := range credentials.Accessors() {
				if accessor == entry {
					return true
				}
			}
			continue
		}
		var value string
		switch strings.ToLower(kind) {
		case "user":
			value = credentials.User
		case "group":
			value = credentials.Group
		case "account":
			value = credentials.Account
		case "class":
			value = credentials.Class
		case "qos":
			value = credentials.QOS
		}
		if value != "" && value == name {
			return true
		}
	}
	return false
}

package ledger

// Role is the back-office role carried by the caller's identity token.
type Role string

const (
	RoleAdmin            Role = "admin"
	RoleFinanceInitiator Role = "finance_initiator"
	RoleApprover         Role = "approver"
	RoleLoanOfficer      Role = "loan_officer"
)

// FinanceRoles may read the accounting views.
var FinanceRoles = []Role{RoleAdmin, RoleFinanceInitiator, RoleApprover}

// In reports whether r is one of roles.
func (r Role) In(roles ...Role) bool {
	for _, x := range roles {
		if r == x {
			return true
		}
	}
	return false
}

// Identity is the authenticated caller.
type Identity struct {
	Subject string
	Name    string
	Role    Role
}

// Actor is the name recorded on documents and audit records.
func (i Identity) Actor() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Subject
}

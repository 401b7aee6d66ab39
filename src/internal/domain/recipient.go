package domain

// RecipientLookup answers whether a handle names an existing account.
// CanonicalName is empty when Exists is false.
type RecipientLookup struct {
	Exists        bool
	CanonicalName string
}

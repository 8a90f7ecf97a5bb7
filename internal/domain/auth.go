package domain

// SubjectType differentiates token holders.
type SubjectType string

const (
	SubjectTypeDonor     SubjectType = "DONOR"
	SubjectTypeStaff     SubjectType = "STAFF"
	SubjectTypeRequestor SubjectType = "REQUESTOR"
	SubjectTypeSystem    SubjectType = "SYSTEM"
)

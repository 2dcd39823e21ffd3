package models

// Notification wording shown by the profile grids. Duplicate and delete
// wording differs per grid and is kept that way.
const (
	MessageAdded   = "has been added"
	MessageUpdated = "been updated"
	// MessageBlankField prefixes the native dialog raised for an empty field
	MessageBlankField = "Please enter"

	EducationDuplicate     = "This information is already exist"
	CertificationDuplicate = "already exist"

	EducationDeleted     = "removed"
	CertificationDeleted = "deleted"
)

// DuplicateMessage returns the error wording kind shows for a duplicate record
func DuplicateMessage(kind GridKind) string {
	if kind == GridCertification {
		return CertificationDuplicate
	}
	return EducationDuplicate
}

// DeletedMessage returns the success wording kind shows after a delete
func DeletedMessage(kind GridKind) string {
	if kind == GridCertification {
		return CertificationDeleted
	}
	return EducationDeleted
}

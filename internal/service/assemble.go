package service

import "contactlink/internal/models"

// assemble builds the consolidated response for a primary and its
// secondaries. The primary's email and phone come first, then each
// secondary's values in cluster (creation) order; duplicates keep their
// first-seen position. Values are never sorted.
func assemble(primary *models.Contact, secondaries []*models.Contact) models.ContactResponse {
	emails := make([]string, 0, 1+len(secondaries))
	phones := make([]string, 0, 1+len(secondaries))
	secondaryIDs := make([]int64, 0, len(secondaries))

	seenEmails := make(map[string]bool)
	seenPhones := make(map[string]bool)

	add := func(c *models.Contact) {
		if c.Email != nil && !seenEmails[*c.Email] {
			seenEmails[*c.Email] = true
			emails = append(emails, *c.Email)
		}
		if c.PhoneNumber != nil && !seenPhones[*c.PhoneNumber] {
			seenPhones[*c.PhoneNumber] = true
			phones = append(phones, *c.PhoneNumber)
		}
	}

	add(primary)
	for _, c := range secondaries {
		add(c)
		secondaryIDs = append(secondaryIDs, c.ID)
	}

	return models.ContactResponse{
		PrimaryContactID:    primary.ID,
		Emails:              emails,
		PhoneNumbers:        phones,
		SecondaryContactIDs: secondaryIDs,
	}
}

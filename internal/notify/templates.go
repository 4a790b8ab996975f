package notify

import (
	"fmt"

	"certregistry/internal/certificate"
)

// Subjects and bodies are plain text. Staff and clients get different copy:
// staff messages identify the certificate tersely, client messages spell out
// what action is expected.

func adminSubject(d Decision, fullNumber string) string {
	switch d.Category {
	case CategoryExpiryWarning:
		return fmt.Sprintf("Certificate %s expires in %d days", fullNumber, d.DaysLeft)
	case CategoryFirstInspection:
		return fmt.Sprintf("First inspection for %s due in %d days", fullNumber, d.DaysLeft)
	case CategorySecondInspection:
		return fmt.Sprintf("Second inspection for %s due in %d days", fullNumber, d.DaysLeft)
	case CategoryStatusChange:
		return fmt.Sprintf("Certificate %s has expired", fullNumber)
	}
	return fmt.Sprintf("Certificate %s reminder", fullNumber)
}

func adminBody(c *certificate.Certificate, d Decision, fullNumber string) string {
	base := fmt.Sprintf("Certificate: %s\nOrganization: %s\nExpiry date: %s\n",
		fullNumber, c.OrgName, c.ExpiryDate.Format("2006-01-02"))

	switch d.Category {
	case CategoryExpiryWarning:
		return base + fmt.Sprintf("\nThe certificate expires in %d days.\n", d.DaysLeft)
	case CategoryFirstInspection:
		return base + fmt.Sprintf("\nThe first inspection control is due in %d days and is still pending.\n", d.DaysLeft)
	case CategorySecondInspection:
		return base + fmt.Sprintf("\nThe second inspection control is due in %d days and is still pending.\n", d.DaysLeft)
	case CategoryStatusChange:
		return base + "\nThe certificate has passed its expiry date and was marked expired.\n"
	}
	return base
}

func clientSubject(d Decision, fullNumber string) string {
	switch d.Category {
	case CategoryExpiryWarning:
		return fmt.Sprintf("Your certificate %s expires in %d days", fullNumber, d.DaysLeft)
	case CategoryFirstInspection, CategorySecondInspection:
		return fmt.Sprintf("Inspection control for certificate %s is approaching", fullNumber)
	case CategoryStatusChange:
		return fmt.Sprintf("Your certificate %s has expired", fullNumber)
	}
	return fmt.Sprintf("Certificate %s reminder", fullNumber)
}

func clientBody(c *certificate.Certificate, d Decision, fullNumber string) string {
	greeting := fmt.Sprintf("Dear %s,\n\n", c.OrgName)

	switch d.Category {
	case CategoryExpiryWarning:
		return greeting + fmt.Sprintf(
			"Your certificate %s expires on %s (%d days from now). "+
				"Please contact the certification body to arrange renewal.\n",
			fullNumber, c.ExpiryDate.Format("2006-01-02"), d.DaysLeft)
	case CategoryFirstInspection, CategorySecondInspection:
		return greeting + fmt.Sprintf(
			"A scheduled inspection control for certificate %s is due in %d days. "+
				"Please contact the certification body to schedule the audit; "+
				"a missed inspection suspends the certificate.\n",
			fullNumber, d.DaysLeft)
	case CategoryStatusChange:
		return greeting + fmt.Sprintf(
			"Your certificate %s expired on %s and is no longer valid. "+
				"Please contact the certification body regarding recertification.\n",
			fullNumber, c.ExpiryDate.Format("2006-01-02"))
	}
	return greeting
}

package invoice

import "context"

// Issuer is the invoicing business as registered on the account profile.
type Issuer struct {
	CompanyName string
	TaxID       string
}

// IssuerSource resolves the issuer of an owner's invoices.
type IssuerSource interface {
	Issuer(ctx context.Context, ownerID string) (Issuer, error)
}

// ApplyIssuer fills the company name and RTN from the profile where the
// document leaves them blank. Set values always win.
func (d *Document) ApplyIssuer(is Issuer) {
	if d.CompanyName == "" && is.CompanyName != "" {
		_ = d.SetCompanyName(is.CompanyName)
	}
	if d.TaxID == "" && is.TaxID != "" {
		_ = d.SetTaxID(is.TaxID)
	}
}

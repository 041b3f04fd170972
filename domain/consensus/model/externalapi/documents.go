package externalapi

// IdentityDocument declares a new identity in the web of trust
type IdentityDocument struct {
	Issuer     PubKey     `yaml:"issuer"`
	Username   string     `yaml:"username"`
	Blockstamp Blockstamp `yaml:"blockstamp"`
	Hash       Hash       `yaml:"hash"`
}

// MembershipDocument is a membership request (join, renewal or leave)
type MembershipDocument struct {
	Issuer   PubKey `yaml:"issuer"`
	Username string `yaml:"username"`
	// Blockstamp is the block the membership was signed on. Memberships
	// are indexed for expiry by its number.
	Blockstamp         Blockstamp `yaml:"blockstamp"`
	IdentityBlockstamp Blockstamp `yaml:"identityBlockstamp"`
}

// RevocationDocument is an explicit revocation of an identity by its owner
type RevocationDocument struct {
	Issuer   PubKey `yaml:"issuer"`
	Username string `yaml:"username"`
}

// CertificationDocument is a certification of Target by Issuer
type CertificationDocument struct {
	Issuer              PubKey      `yaml:"issuer"`
	Target              PubKey      `yaml:"target"`
	SignedOnBlockNumber BlockNumber `yaml:"signedOn"`
}

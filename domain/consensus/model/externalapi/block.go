package externalapi

// BlockDocument is a block that was already parsed, signature-checked and
// validated against the local rules
type BlockDocument struct {
	Number       BlockNumber `yaml:"number"`
	Hash         Hash        `yaml:"hash"`
	PreviousHash Hash        `yaml:"previousHash"`
	MedianTime   uint64      `yaml:"medianTime"`
	Issuer       PubKey      `yaml:"issuer"`

	// Dividend is nil for blocks that don't carry a universal dividend
	Dividend *uint64 `yaml:"dividend"`
	UnitBase uint32  `yaml:"unitBase"`

	Identities     []*IdentityDocument      `yaml:"identities"`
	Joiners        []*MembershipDocument    `yaml:"joiners"`
	Actives        []*MembershipDocument    `yaml:"actives"`
	Leavers        []*MembershipDocument    `yaml:"leavers"`
	Revoked        []*RevocationDocument    `yaml:"revoked"`
	Excluded       []PubKey                 `yaml:"excluded"`
	Certifications []*CertificationDocument `yaml:"certifications"`
	Transactions   []*TxDocOrHash           `yaml:"transactions"`
}

// Blockstamp returns the blockstamp of the block
func (block *BlockDocument) Blockstamp() Blockstamp {
	return Blockstamp{Number: block.Number, Hash: block.Hash}
}

// PreviousBlockstamp returns the blockstamp of the parent of the block.
// It is meaningless for the genesis block.
func (block *BlockDocument) PreviousBlockstamp() Blockstamp {
	return Blockstamp{Number: block.Number - 1, Hash: block.PreviousHash}
}

// Reduce returns a shallow copy of the block with its transactions
// reduced to their hashes
func (block *BlockDocument) Reduce() *BlockDocument {
	reduced := *block
	reduced.Transactions = make([]*TxDocOrHash, len(block.Transactions))
	for i, tx := range block.Transactions {
		reduced.Transactions[i] = tx.Reduce()
	}
	return &reduced
}

package consensus

import "fmt"

// BlockStatus is the outcome of the processing of a block
type BlockStatus uint8

const (
	// StatusInvalid indicates a block that was rejected
	StatusInvalid BlockStatus = iota

	// StatusApplied indicates a block that extended the main branch
	StatusApplied

	// StatusFork indicates a block that was attached to a branch other
	// than the main one
	StatusFork

	// StatusReforked indicates a block whose branch replaced the main
	// branch
	StatusReforked

	// StatusOrphan indicates a block whose parent is unknown. It is kept
	// until its parent arrives or it falls out of the fork window.
	StatusOrphan

	// StatusDuplicate indicates a block that is already known
	StatusDuplicate
)

var blockStatusStrings = map[BlockStatus]string{
	StatusInvalid:   "invalid",
	StatusApplied:   "applied",
	StatusFork:      "fork",
	StatusReforked:  "reforked",
	StatusOrphan:    "orphan",
	StatusDuplicate: "duplicate",
}

func (status BlockStatus) String() string {
	if str, ok := blockStatusStrings[status]; ok {
		return str
	}
	return fmt.Sprintf("BlockStatus(%d)", uint8(status))
}

// extendsTree returns whether a block of this status is now part of the
// fork tree, which makes its buffered children processable
func (status BlockStatus) extendsTree() bool {
	return status == StatusApplied || status == StatusFork || status == StatusReforked
}

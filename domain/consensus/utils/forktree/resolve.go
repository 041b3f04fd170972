package forktree

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/dubpconfig"
)

// MedianTimeSource returns the median time of a block of the fork tree
type MedianTimeSource interface {
	MedianTime(blockstamp externalapi.Blockstamp) (uint64, error)
}

// ResolveFork looks for a branch that should replace the current one. It
// returns the blockstamps of the winning branch from its first block
// outside of the main branch to its head, or nil when the main branch
// stays canonical.
//
// Branches are examined from the highest head down. A branch wins when its
// head is at least AdvanceBlocks blocks and AdvanceTime seconds of median
// time ahead of the current block, its first block is still inside the
// fork window, and none of its blocks is known to be invalid.
func ResolveFork(tree *ForkTree, current externalapi.Blockstamp,
	invalidBlocks map[externalapi.Blockstamp]struct{}, medianTimes MedianTimeSource,
	params *dubpconfig.CurrencyParameters) ([]externalapi.Blockstamp, error) {

	currentMedianTime, err := medianTimes.MedianTime(current)
	if err != nil {
		return nil, err
	}

	for _, sheet := range tree.Sheets() {
		if sheet.Blockstamp == current {
			continue
		}
		if uint64(sheet.Blockstamp.Number) < uint64(current.Number)+uint64(params.AdvanceBlocks) {
			// Sheets are sorted by descending number
			break
		}

		branch, err := tree.ForkBranch(sheet.ID)
		if err != nil {
			return nil, err
		}
		if len(branch) == 0 {
			continue
		}
		if uint64(branch[0].Number)+uint64(params.ForkWindowSize) <= uint64(current.Number) {
			log.Debugf("Branch %s is rooted out of the fork window", sheet.Blockstamp)
			continue
		}
		if containsInvalidBlock(branch, invalidBlocks) {
			log.Debugf("Branch %s contains an invalid block", sheet.Blockstamp)
			continue
		}

		headMedianTime, err := medianTimes.MedianTime(sheet.Blockstamp)
		if err != nil {
			return nil, err
		}
		if headMedianTime < currentMedianTime+params.AdvanceTime {
			continue
		}

		log.Infof("Branch %s is %d blocks ahead of current block %s",
			sheet.Blockstamp, sheet.Blockstamp.Number-current.Number, current)
		return branch, nil
	}
	return nil, nil
}

func containsInvalidBlock(branch []externalapi.Blockstamp, invalidBlocks map[externalapi.Blockstamp]struct{}) bool {
	for _, blockstamp := range branch {
		if _, ok := invalidBlocks[blockstamp]; ok {
			return true
		}
	}
	return false
}

package forktreestore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/forktree"
)

var bucketName = []byte("fork-tree")

type forkTreeStagingShard struct {
	store   *ForkTreeStore
	newTree *forktree.ForkTree
}

func (fts *ForkTreeStore) stagingShard(stagingArea *model.StagingArea) *forkTreeStagingShard {
	return stagingArea.GetOrCreateShard("ForkTreeStore", func() model.StagingShard {
		return &forkTreeStagingShard{
			store:   fts,
			newTree: nil,
		}
	}).(*forkTreeStagingShard)
}

func (ftss *forkTreeStagingShard) Commit(dbTx model.DBTransaction) error {
	if ftss.newTree == nil {
		return nil
	}
	treeBytes, err := ftss.newTree.Serialize()
	if err != nil {
		return err
	}
	return dbTx.Put(ftss.store.key, treeBytes)
}

// ForkTreeStore stores the fork tree
type ForkTreeStore struct {
	key model.DBKey
}

// New instantiates a new ForkTreeStore
func New(prefixBucket model.DBBucket) *ForkTreeStore {
	return &ForkTreeStore{
		key: prefixBucket.Bucket(bucketName).Key([]byte("tree")),
	}
}

// Stage stages a copy of tree
func (fts *ForkTreeStore) Stage(stagingArea *model.StagingArea, tree *forktree.ForkTree) {
	fts.stagingShard(stagingArea).newTree = tree.Clone()
}

// ForkTree loads the fork tree. A store that never had a tree staged
// yields an empty tree of the given window size.
func (fts *ForkTreeStore) ForkTree(dbContext model.DBReader, stagingArea *model.StagingArea,
	windowSize uint32) (*forktree.ForkTree, error) {

	stagingShard := fts.stagingShard(stagingArea)
	if stagingShard.newTree != nil {
		return stagingShard.newTree.Clone(), nil
	}

	has, err := dbContext.Has(fts.key)
	if err != nil {
		return nil, err
	}
	if !has {
		return forktree.New(windowSize), nil
	}
	treeBytes, err := dbContext.Get(fts.key)
	if err != nil {
		return nil, err
	}
	return forktree.Deserialize(treeBytes)
}

package syncpipeline

import (
	"context"
	"io"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BlockSource streams the blocks to synchronize, in chain order
type BlockSource interface {
	// Next returns the next block, or io.EOF once every block was read
	Next(ctx context.Context) (*externalapi.BlockDocument, error)
}

type yamlBlockSource struct {
	decoder *yaml.Decoder
}

// NewYAMLBlockSource returns a BlockSource reading a stream of YAML
// documents, one block per document
func NewYAMLBlockSource(reader io.Reader) BlockSource {
	return &yamlBlockSource{decoder: yaml.NewDecoder(reader)}
}

func (ybs *yamlBlockSource) Next(ctx context.Context) (*externalapi.BlockDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	block := &externalapi.BlockDocument{}
	err := ybs.decoder.Decode(block)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "failed to decode block")
	}
	return block, nil
}

type sliceBlockSource struct {
	blocks []*externalapi.BlockDocument
}

// NewSliceBlockSource returns a BlockSource serving blocks
func NewSliceBlockSource(blocks []*externalapi.BlockDocument) BlockSource {
	return &sliceBlockSource{blocks: blocks}
}

func (sbs *sliceBlockSource) Next(ctx context.Context) (*externalapi.BlockDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(sbs.blocks) == 0 {
		return nil, io.EOF
	}
	block := sbs.blocks[0]
	sbs.blocks = sbs.blocks[1:]
	return block, nil
}

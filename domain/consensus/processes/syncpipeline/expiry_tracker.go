package syncpipeline

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

type certificationBatch struct {
	createdIn  externalapi.BlockNumber
	medianTime uint64
	links      []model.CertLink
}

// expiryTracker keeps the active certifications in memory, in the order
// they were written, so that the producer never reads the expiry index
// the WoT worker is still writing to
type expiryTracker struct {
	sigValidity uint64
	batches     []*certificationBatch
}

func newExpiryTracker(sigValidity uint64) *expiryTracker {
	return &expiryTracker{sigValidity: sigValidity}
}

func (et *expiryTracker) add(createdIn externalapi.BlockNumber, medianTime uint64, links []model.CertLink) {
	if len(links) == 0 {
		return
	}
	et.batches = append(et.batches, &certificationBatch{
		createdIn:  createdIn,
		medianTime: medianTime,
		links:      links,
	})
}

// popExpiring removes and returns the certifications that expire when
// block is applied
func (et *expiryTracker) popExpiring(block *externalapi.BlockDocument) map[model.CertLink]externalapi.BlockNumber {
	expireCerts := make(map[model.CertLink]externalapi.BlockNumber)
	for len(et.batches) > 0 {
		batch := et.batches[0]
		if batch.createdIn >= block.Number || batch.medianTime+et.sigValidity > block.MedianTime {
			break
		}
		for _, link := range batch.links {
			expireCerts[link] = batch.createdIn
		}
		et.batches = et.batches[1:]
	}
	return expireCerts
}

// recordCertifications adds the certifications written by requests,
// the write requests of block
func (et *expiryTracker) recordCertifications(block *externalapi.BlockDocument, requests []model.WoTRequest) {
	var links []model.CertLink
	for _, request := range requests {
		if certification, ok := request.(*model.CreateCertificationRequest); ok {
			links = append(links, certification.Link)
		}
	}
	et.add(block.Number, block.MedianTime, links)
}

func (et *expiryTracker) len() int {
	count := 0
	for _, batch := range et.batches {
		count += len(batch.links)
	}
	return count
}

package model

// WoTGraphStore stores the snapshot of the web of trust graph
type WoTGraphStore interface {
	Stage(stagingArea *StagingArea, graph WebOfTrust)
	IsStaged(stagingArea *StagingArea) bool
	Graph(dbContext DBReader, stagingArea *StagingArea) (WebOfTrust, error)
	HasGraph(dbContext DBReader, stagingArea *StagingArea) (bool, error)
}
